package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

const testStylesXML = `<?xml version="1.0" encoding="UTF-8"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <numFmts count="2">
    <numFmt numFmtId="164" formatCode="yyyy-mm-dd"/>
    <numFmt numFmtId="165" formatCode="#,##0.00"/>
  </numFmts>
  <cellStyleXfs count="1"><xf numFmtId="14"/></cellStyleXfs>
  <cellXfs count="5">
    <xf numFmtId="0" fontId="0"/>
    <xf numFmtId="14" fontId="0" applyNumberFormat="1"/>
    <xf numFmtId="49" fontId="0" applyNumberFormat="1"/>
    <xf numFmtId="164" fontId="0" applyNumberFormat="1"><alignment horizontal="left"/></xf>
    <xf numFmtId="165" fontId="0" applyNumberFormat="1"/>
  </cellXfs>
</styleSheet>`

func newTestCoercer(t *testing.T) *Coercer {
	t.Helper()
	styles, err := ReadStyles(strings.NewReader(testStylesXML))
	if err != nil {
		t.Fatalf("ReadStyles failed: %v", err)
	}
	return &Coercer{
		Strings: memoryStrings{"alpha", "beta", "tab\there"},
		Styles:  styles,
		Embedded: func(path string) ([]byte, error) {
			if path == "xl/media/image1.png" {
				return []byte{0x89, 'P', 'N', 'G'}, nil
			}
			if path == "xl/media/broken.bin" {
				return nil, errors.New("corrupt entry")
			}
			return nil, nil
		},
	}
}

func TestCoerce(t *testing.T) {
	c := newTestCoercer(t)
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raw      string
		typeTag  string
		style    int
		expected models.Value
	}{
		{"shared string", "1", TypeSharedString, -1, models.String("beta")},
		{"shared string out of range", "7", TypeSharedString, -1, models.Value{}},
		{"shared string negative", "-1", TypeSharedString, -1, models.Value{}},
		{"shared string not a number", "x", TypeSharedString, -1, models.Value{}},
		{"inline string", "plain", TypeInlineString, -1, models.String("plain")},
		{"inline string escape", "a_x000D_b", TypeInlineString, -1, models.String("a\rb")},
		{"formula string", "42", TypeFormulaStr, -1, models.String("42")},
		{"embedded part", EmbeddedFilePrefix + "xl/media/image1.png", TypeFormulaStr, -1, models.Binary([]byte{0x89, 'P', 'N', 'G'})},
		{"embedded part missing", EmbeddedFilePrefix + "xl/media/none.png", TypeInlineString, -1, models.String(EmbeddedFilePrefix + "xl/media/none.png")},
		{"embedded part unreadable", EmbeddedFilePrefix + "xl/media/broken.bin", TypeInlineString, -1, models.String(EmbeddedFilePrefix + "xl/media/broken.bin")},
		{"bool true", "1", TypeBoolean, -1, models.Bool(true)},
		{"bool false", "0", TypeBoolean, -1, models.Bool(false)},
		{"bool other", "yes", TypeBoolean, -1, models.Bool(false)},
		{"iso date", "2024-01-01", TypeDate, -1, models.Date(jan1)},
		{"iso datetime", "2024-01-01T06:30:00", TypeDate, -1, models.Date(jan1.Add(6*time.Hour + 30*time.Minute))},
		{"bad iso date", "soon", TypeDate, -1, models.String("soon")},
		{"error", "#DIV/0!", TypeError, -1, models.FormulaError("#DIV/0!")},
		{"number", "3.5", "", -1, models.Number(3.5)},
		{"explicit number", "-12", TypeNumber, 0, models.Number(-12)},
		{"number text fallback", "n/a", "", -1, models.String("n/a")},
		{"built-in date style", "45292", "", 1, models.Date(jan1)},
		{"custom date style", "45292.25", "", 3, models.Date(jan1.Add(6 * time.Hour))},
		{"text style keeps raw text", "00123", "", 2, models.String("00123")},
		{"custom number style", "45292", "", 4, models.Number(45292)},
		{"style out of range", "45292", "", 99, models.Number(45292)},
		{"date style ignores strings", "0", TypeSharedString, 1, models.String("alpha")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Coerce(tt.raw, tt.typeTag, tt.style)
			if !sameValue(result, tt.expected) {
				t.Errorf("Coerce(%q, %q, %d) = %#v, expected %#v", tt.raw, tt.typeTag, tt.style, result, tt.expected)
			}
		})
	}
}

// sameValue compares values, dates by instant.
func sameValue(a, b models.Value) bool {
	if a.Kind == models.KindDate && b.Kind == models.KindDate {
		return a.Time.Equal(b.Time)
	}
	return reflect.DeepEqual(a, b)
}

func TestCoerceIsDeterministic(t *testing.T) {
	c := newTestCoercer(t)
	inputs := []struct {
		raw     string
		typeTag string
		style   int
	}{
		{"2", TypeSharedString, -1},
		{"45292", "", 1},
		{"00123", "", 2},
		{"x_x0009_y", TypeInlineString, -1},
		{"1", TypeBoolean, 0},
	}
	for _, in := range inputs {
		first := c.Coerce(in.raw, in.typeTag, in.style)
		for i := 0; i < 3; i++ {
			if again := c.Coerce(in.raw, in.typeTag, in.style); !sameValue(first, again) {
				t.Errorf("Coerce(%q, %q, %d) changed from %#v to %#v", in.raw, in.typeTag, in.style, first, again)
			}
		}
	}
}

func TestCoerceDate1904(t *testing.T) {
	c := newTestCoercer(t)
	c.Date1904 = true
	result := c.Coerce("43830", "", 1)
	expected := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if result.Kind != models.KindDate || !result.Time.Equal(expected) {
		t.Errorf("Expected %v, got %#v", expected, result)
	}
}

func TestCoerceWithoutStyles(t *testing.T) {
	c := &Coercer{}
	if result := c.Coerce("45292", "", 1); !reflect.DeepEqual(result, models.Number(45292)) {
		t.Errorf("Expected plain number without styles, got %#v", result)
	}
	if result := c.Coerce("0", TypeSharedString, -1); !result.IsAbsent() {
		t.Errorf("Expected absent value without shared strings, got %#v", result)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected models.Value
	}{
		{"123", models.Number(123)},
		{"123.45", models.Number(123.45)},
		{" 7 ", models.Number(7)},
		{"1E3", models.Number(1000)},
		{"hello", models.String("hello")},
		{"", models.String("")},
	}

	for _, tt := range tests {
		result := parseValue(tt.input)
		if !reflect.DeepEqual(result, tt.expected) {
			t.Errorf("parseValue(%q) = %#v, expected %#v", tt.input, result, tt.expected)
		}
	}
}
