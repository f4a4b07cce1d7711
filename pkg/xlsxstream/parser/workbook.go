package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// Well-known container part paths.
const (
	workbookPath      = "xl/workbook.xml"
	workbookRelsPath  = "xl/_rels/workbook.xml.rels"
	sharedStringsPath = "xl/sharedStrings.xml"
	stylesPath        = "xl/styles.xml"
	worksheetsDir     = "xl/worksheets/"
)

// Workbook is the manifest of a container.
type Workbook struct {
	Sheets            []models.SheetRecord
	Names             []models.DefinedName
	Date1904          bool
	SharedStringsPath string
	StylesPath        string
}

// workbookSheet is a <sheet> element before its relationship is resolved.
type workbookSheet struct {
	name, id, rID, state string
}

// relationship is a <Relationship> element.
type relationship struct {
	id, target, relType string
}

// ReadWorkbook parses the workbook manifest and its relationships.
// Containers without a manifest fall back to the worksheet parts found in
// the archive.
func ReadWorkbook(a *Archive) (*Workbook, error) {
	wb := &Workbook{
		SharedStringsPath: sharedStringsPath,
		StylesPath:        stylesPath,
	}

	workbookXML, err := a.ReadAll(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrContainerStructureInvalid, workbookPath, err)
	}

	var sheets []workbookSheet
	var names []rawDefinedName
	if workbookXML != nil {
		sheets, names, wb.Date1904, err = parseWorkbookXML(workbookXML)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrContainerStructureInvalid, workbookPath, err)
		}
	}

	var rels map[string]relationship
	if relsXML, err := a.ReadAll(workbookRelsPath); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrContainerStructureInvalid, workbookRelsPath, err)
	} else if relsXML != nil {
		rels = parseRelationships(relsXML)
		for _, rel := range rels {
			switch strings.ToLower(path.Base(rel.relType)) {
			case "sharedstrings":
				wb.SharedStringsPath = resolveRelativePath(rel.target, "xl")
			case "styles":
				wb.StylesPath = resolveRelativePath(rel.target, "xl")
			}
		}
	}

	parts := worksheetParts(a)
	switch {
	case len(sheets) == 0:
		// No manifest: one record per worksheet part.
		for i, p := range parts {
			wb.Sheets = append(wb.Sheets, models.SheetRecord{
				Name:  "Sheet" + strconv.Itoa(i+1),
				State: models.SheetVisible,
				Path:  p,
				Index: i,
			})
		}
	default:
		for i, s := range sheets {
			rec := models.SheetRecord{
				Name:           s.name,
				State:          sheetState(s.state),
				ID:             s.id,
				RelationshipID: s.rID,
				Index:          i,
			}
			if rel, ok := rels[s.rID]; ok {
				rec.Path = resolveRelativePath(rel.target, "xl")
			} else if rels == nil && i < len(parts) {
				rec.Path = parts[i]
			}
			wb.Sheets = append(wb.Sheets, rec)
		}
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: no worksheets", ErrContainerStructureInvalid)
	}

	for _, n := range names {
		wb.Names = append(wb.Names, n.resolve(wb.Sheets))
	}

	return wb, nil
}

func sheetState(s string) models.SheetState {
	switch s {
	case "hidden":
		return models.SheetHidden
	case "veryHidden":
		return models.SheetVeryHidden
	}
	return models.SheetVisible
}

// parseWorkbookXML reads sheets, defined names and the 1904 date flag.
func parseWorkbookXML(data []byte) ([]workbookSheet, []rawDefinedName, bool, error) {
	var sheets []workbookSheet
	var names []rawDefinedName
	date1904 := false

	decoder := newDecoder(strings.NewReader(string(data)))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, false, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "workbookPr":
			if v, ok := attrValue(se, "date1904"); ok {
				date1904 = v == "1" || strings.EqualFold(v, "true")
			}
		case "sheet":
			var s workbookSheet
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					s.name = attr.Value
				case "sheetId":
					s.id = attr.Value
				case "id":
					s.rID = attr.Value
				case "state":
					s.state = attr.Value
				}
			}
			if s.name != "" {
				sheets = append(sheets, s)
			}
		case "definedName":
			n := rawDefinedName{localSheetID: -1}
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					n.name = attr.Value
				case "localSheetId":
					if id, err := strconv.Atoi(attr.Value); err == nil {
						n.localSheetID = id
					}
				}
			}
			if err := decoder.DecodeElement(&n.refersTo, &se); err != nil {
				return nil, nil, false, err
			}
			if n.name != "" {
				names = append(names, n)
			}
		}
	}

	return sheets, names, date1904, nil
}

// parseRelationships maps relationship ids to their targets.
func parseRelationships(data []byte) map[string]relationship {
	result := make(map[string]relationship)
	decoder := newDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var rel relationship
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					rel.id = attr.Value
				case "Target":
					rel.target = attr.Value
				case "Type":
					rel.relType = attr.Value
				}
			}
			if rel.id != "" {
				result[rel.id] = rel
			}
		}
	}

	return result
}

// worksheetParts lists xl/worksheets/*.xml in numeric order.
func worksheetParts(a *Archive) []string {
	var parts []string
	for _, name := range a.Names(worksheetsDir) {
		rest := name[len(worksheetsDir):]
		if strings.Contains(rest, "/") || !strings.HasSuffix(strings.ToLower(rest), ".xml") {
			continue
		}
		parts = append(parts, name)
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return partNumber(parts[i]) < partNumber(parts[j])
	})
	return parts
}

// partNumber extracts the trailing number of names like "sheet12.xml".
func partNumber(name string) int {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return 0
	}
	return n
}

// resolveRelativePath turns a relationship target into an archive path.
func resolveRelativePath(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(baseDir + "/" + target)
}

func attrValue(se xml.StartElement, name string) (string, bool) {
	for _, attr := range se.Attr {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}
