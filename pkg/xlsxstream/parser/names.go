package parser

import (
	"strings"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// rawDefinedName is a <definedName> element before its reference is parsed.
type rawDefinedName struct {
	name         string
	refersTo     string
	localSheetID int
}

// resolve parses the reference of a defined name. Names that do not refer
// to a plain range keep an empty Sheet.
func (n rawDefinedName) resolve(sheets []models.SheetRecord) models.DefinedName {
	dn := models.DefinedName{
		Name:     n.name,
		RefersTo: strings.TrimSpace(n.refersTo),
	}
	if n.localSheetID >= 0 {
		id := n.localSheetID
		dn.LocalSheetID = &id
	}

	sheetName, areas := parseAreaReference(dn.RefersTo)
	if sheetName == "" || len(areas) == 0 {
		return dn
	}
	for _, s := range sheets {
		if s.Name == sheetName {
			dn.Sheet = sheetName
			dn.Start, dn.End = areas[0][0], areas[0][1]
			break
		}
	}
	return dn
}

// parseAreaReference parses a reference string.
// Format: 'Sheet Name'!$A$1:$D$10,'Sheet Name'!$F$1:$F$4 or Sheet1!$A$1
func parseAreaReference(ref string) (string, [][2]models.CellRef) {
	var areas [][2]models.CellRef

	var sheetName string
	for _, part := range splitAreas(ref) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		sheet, cells, ok := splitSheetRef(part)
		if !ok {
			continue
		}
		if sheetName == "" {
			sheetName = sheet
		}

		start, end, err := models.ParseRange(cells)
		if err != nil {
			continue
		}
		areas = append(areas, [2]models.CellRef{start, end})
	}

	return sheetName, areas
}

// splitSheetRef splits "Sheet!A1:B2" at the "!" that ends the (possibly
// quoted) sheet name.
func splitSheetRef(part string) (string, string, bool) {
	idx := -1
	if strings.HasPrefix(part, "'") {
		for i := 1; i < len(part); i++ {
			if part[i] != '\'' {
				continue
			}
			if i+1 < len(part) && part[i+1] == '\'' {
				i++
				continue
			}
			if i+1 < len(part) && part[i+1] == '!' {
				idx = i + 1
			}
			break
		}
	} else {
		idx = strings.Index(part, "!")
	}
	if idx < 0 {
		return "", "", false
	}
	return unquoteSheetName(part[:idx]), part[idx+1:], true
}

// splitAreas splits on commas that are not inside a quoted sheet name.
func splitAreas(ref string) []string {
	var parts []string
	inQuote := false
	last := 0
	for i := 0; i < len(ref); i++ {
		switch ref[i] {
		case '\'':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				parts = append(parts, ref[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, ref[last:])
}

func unquoteSheetName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
