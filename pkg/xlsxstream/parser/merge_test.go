package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

func ref(t *testing.T, s string) models.CellRef {
	t.Helper()
	r, err := models.ParseRef(s)
	if err != nil {
		t.Fatalf("ParseRef(%q): %v", s, err)
	}
	return r
}

func TestLoadMerges(t *testing.T) {
	sheet := worksheet("A1:D6",
		`<row r="1"><c r="A1"><v>1</v></c></row>`,
		`<mergeCells count="3"><mergeCell ref="B2:B4"/><mergeCell ref="C1:D1"/><mergeCell ref="A6"/></mergeCells>`)

	m, err := LoadMerges(context.Background(), strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("LoadMerges failed: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Expected 2 spans (single-cell span ignored), got %d", m.Len())
	}
	if !m.IsAnchor(ref(t, "B2")) || !m.IsAnchor(ref(t, "C1")) {
		t.Error("Expected B2 and C1 to be anchors")
	}
	if m.IsAnchor(ref(t, "B3")) {
		t.Error("B3 is covered, not an anchor")
	}

	x := models.String("X")
	m.Observe(ref(t, "B2"), x)
	tests := []struct {
		cell     string
		expected models.Value
	}{
		{"B2", models.Number(7)},
		{"B3", x},
		{"B4", x},
		{"B5", models.Number(7)},
		{"D1", models.Number(7)}, // anchor C1 holds no value yet
	}
	for _, tt := range tests {
		if result := m.Resolve(ref(t, tt.cell), models.Number(7)); !sameValue(result, tt.expected) {
			t.Errorf("Resolve(%s) = %#v, expected %#v", tt.cell, result, tt.expected)
		}
	}

	if !m.RowHasAnchorsReaching(1, 3) || m.RowHasAnchorsReaching(1, 4) {
		t.Error("Expected the B2:B4 anchor row to reach row index 3 and no further")
	}
}

func TestLoadMergesWholeSheetSpan(t *testing.T) {
	sheet := worksheet("", "", `<mergeCells><mergeCell ref="A1:XFD1048576"/></mergeCells>`)
	m, err := LoadMerges(context.Background(), strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("LoadMerges failed: %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("Expected 1 span, got %d", m.Len())
	}
	x := models.String("X")
	m.Observe(ref(t, "A1"), x)
	for _, cell := range []string{"B1", "A2", "XFD1048576"} {
		if v := m.Resolve(ref(t, cell), models.Value{}); !sameValue(v, x) {
			t.Errorf("Resolve(%s) = %#v, expected X", cell, v)
		}
	}
	if row := m.nextCoveredRow(5000); row != 5000 {
		t.Errorf("nextCoveredRow(5000) = %d, expected 5000", row)
	}
	if last := m.lastFilledRow(Window{EndRow: 9, EndColumn: -1}); last != 9 {
		t.Errorf("lastFilledRow clipped to the window = %d, expected 9", last)
	}
}

func TestLoadMergesMalformed(t *testing.T) {
	tests := []string{
		`<mergeCell ref="B2:"/>`,
		`<mergeCell ref="nope"/>`,
		`<mergeCell ref="C3:A1"/>`,
		`<mergeCell ref="A1:B2:C3"/>`,
		`<mergeCell/>`,
	}
	for _, decl := range tests {
		sheet := worksheet("", "", "<mergeCells>"+decl+"</mergeCells>")
		_, err := LoadMerges(context.Background(), strings.NewReader(sheet))
		if !errors.Is(err, ErrMalformedMergeDeclaration) {
			t.Errorf("%s: expected ErrMalformedMergeDeclaration, got %v", decl, err)
		}
	}
}
