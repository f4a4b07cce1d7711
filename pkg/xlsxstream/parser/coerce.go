package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
	"github.com/xuri/excelize/v2"
)

// Cell type tags (the t attribute of <c>).
const (
	TypeSharedString = "s"
	TypeInlineString = "inlineStr"
	TypeFormulaStr   = "str"
	TypeBoolean      = "b"
	TypeDate         = "d"
	TypeError        = "e"
	TypeNumber       = "n"
)

// EmbeddedFilePrefix marks string cells that point to a container part.
const EmbeddedFilePrefix = "@@@fileid@@@,"

// isoDateLayouts are accepted for t="d" cells.
var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
	"15:04:05",
}

// Coercer turns raw cell text into typed values.
type Coercer struct {
	Strings  SharedStrings
	Styles   *Styles
	Date1904 bool
	// Embedded reads a container part for EmbeddedFilePrefix values; nil
	// leaves such values as text.
	Embedded func(path string) ([]byte, error)
}

// Coerce decodes raw text by type tag, then lets the style reinterpret
// numbers. Malformed input degrades to the raw text.
func (c *Coercer) Coerce(raw, typeTag string, style int) models.Value {
	var v models.Value

	switch typeTag {
	case TypeSharedString:
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || c.Strings == nil {
			return models.Value{}
		}
		s, ok := c.Strings.Get(idx)
		if !ok {
			return models.Value{}
		}
		return models.String(s)
	case TypeInlineString, TypeFormulaStr:
		s := decodeEscapes(raw)
		if strings.HasPrefix(s, EmbeddedFilePrefix) && c.Embedded != nil {
			if b, err := c.Embedded(s[len(EmbeddedFilePrefix):]); err == nil && b != nil {
				return models.Binary(b)
			}
		}
		return models.String(s)
	case TypeBoolean:
		return models.Bool(strings.TrimSpace(raw) == "1")
	case TypeDate:
		if t, ok := parseISODate(raw); ok {
			return models.Date(t)
		}
		return models.String(raw)
	case TypeError:
		return models.FormulaError(raw)
	default:
		v = parseValue(raw)
	}

	if v.Kind == models.KindNumber && style > 0 {
		switch c.Styles.Class(style) {
		case FormatDate:
			if t, err := excelize.ExcelDateToTime(v.Num, c.Date1904); err == nil {
				return models.Date(t)
			}
		case FormatText:
			return models.String(raw)
		}
	}
	return v
}

// parseValue attempts to parse a numeric cell.
// Returns a number, or the original text when it does not parse.
func parseValue(s string) models.Value {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return models.Number(f)
	}
	return models.String(s)
}

func parseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
