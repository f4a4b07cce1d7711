package parser

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/nfp"
)

// FormatClass is what a number format means for value coercion.
type FormatClass int

const (
	FormatGeneral FormatClass = iota
	FormatDate
	FormatText
)

// builtInDateFormats are the number format ids reserved for dates and
// times, including the locale-dependent east-asian ids.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

const builtInTextFormat = 49

// Styles maps cell style indexes to number format classes.
type Styles struct {
	xfNumFmt []int
	custom   map[int]string
	cache    map[int]FormatClass
}

// ReadStyles parses <numFmts> and the <xf> entries of <cellXfs>.
func ReadStyles(r io.Reader) (*Styles, error) {
	st := &Styles{custom: make(map[int]string), cache: make(map[int]FormatClass)}

	decoder := newDecoder(r)
	inCellXfs := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numFmt":
				id, err := strconv.Atoi(attr(t, "numFmtId"))
				if err == nil {
					st.custom[id] = attr(t, "formatCode")
				}
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if !inCellXfs {
					continue
				}
				id, err := strconv.Atoi(attr(t, "numFmtId"))
				if err != nil {
					id = 0
				}
				st.xfNumFmt = append(st.xfNumFmt, id)
				// Children (alignment, protection) are irrelevant here.
				if err := decoder.Skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}
	return st, nil
}

// Class classifies the number format of a style index. Unknown indexes
// are general.
func (s *Styles) Class(style int) FormatClass {
	if s == nil || style < 0 || style >= len(s.xfNumFmt) {
		return FormatGeneral
	}
	if c, ok := s.cache[style]; ok {
		return c
	}
	c := s.classify(s.xfNumFmt[style])
	s.cache[style] = c
	return c
}

func (s *Styles) classify(numFmtID int) FormatClass {
	code, ok := s.custom[numFmtID]
	if !ok {
		switch {
		case builtInDateFormats[numFmtID]:
			return FormatDate
		case numFmtID == builtInTextFormat:
			return FormatText
		}
		return FormatGeneral
	}
	return classifyFormatCode(code)
}

// classifyFormatCode inspects the positive-number section of a custom
// format code.
func classifyFormatCode(code string) FormatClass {
	if strings.TrimSpace(code) == "" || strings.EqualFold(code, "General") {
		return FormatGeneral
	}
	p := nfp.NumberFormatParser()
	sections := p.Parse(code)
	if len(sections) == 0 {
		return FormatGeneral
	}

	onlyText := false
	for _, token := range sections[0].Items {
		switch token.TType {
		case nfp.TokenTypeDateTimes, nfp.TokenTypeElapsedDateTimes:
			return FormatDate
		case nfp.TokenTypeTextPlaceHolder:
			onlyText = true
		case nfp.TokenTypeLiteral:
		default:
			onlyText = false
		}
	}
	if onlyText && len(sections) == 1 {
		return FormatText
	}
	return FormatGeneral
}

func attr(se xml.StartElement, name string) string {
	v, _ := attrValue(se, name)
	return v
}
