package parser

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDiscoverUsedRange(t *testing.T) {
	tests := []struct {
		name       string
		sheet      string
		ref        string
		maxRow     int
		maxCol     int
		positional bool
	}{
		{
			name:   "declared dimension",
			sheet:  worksheet("B2:D10", `<row r="2"><c r="B2"><v>1</v></c></row>`, ""),
			ref:    "B2:D10",
			maxRow: 9,
			maxCol: 3,
		},
		{
			name:   "single-cell hint falls back to scan",
			sheet:  worksheet("A1", `<row r="3"><c r="C3"><v>1</v></c><c r="E3"><v>2</v></c></row><row r="7"><c r="B7"><v>3</v></c></row>`, ""),
			ref:    "B3:E7",
			maxRow: 6,
			maxCol: 4,
		},
		{
			name:   "absent hint falls back to scan",
			sheet:  worksheet("", `<row r="1"><c r="A1"><v>1</v></c></row><row r="4"><c r="F4"><v>2</v></c></row>`, ""),
			ref:    "A1:F4",
			maxRow: 3,
			maxCol: 5,
		},
		{
			name:       "cells without refs are counted positionally",
			sheet:      worksheet("A1:Z99", `<row><c><v>1</v></c><c><v>2</v></c><c><v>3</v></c></row><row><c><v>4</v></c></row>`, ""),
			ref:        "A1:C2",
			maxRow:     1,
			maxCol:     2,
			positional: true,
		},
		{
			name:       "rows with refs, cells without",
			sheet:      worksheet("", `<row r="5"><c><v>1</v></c><c><v>2</v></c></row>`, ""),
			ref:        "A5:B5",
			maxRow:     4,
			maxCol:     1,
			positional: true,
		},
		{
			name:   "empty sheet",
			sheet:  worksheet("A1", "", ""),
			ref:    "",
			maxRow: -1,
			maxCol: -1,
		},
		{
			name:   "self-closing rows only",
			sheet:  worksheet("", `<row r="2"/><row r="3"/>`, ""),
			ref:    "",
			maxRow: -1,
			maxCol: -1,
		},
		{
			name:   "trailing empty rows do not extend the range",
			sheet:  worksheet("", `<row r="1"><c r="B1"><v>1</v></c></row><row r="8"/>`, ""),
			ref:    "B1:B1",
			maxRow: 0,
			maxCol: 1,
		},
		{
			name:   "rows without refs, cells with refs",
			sheet:  worksheet("", `<row><c r="B1"><v>1</v></c><c r="D1"><v>2</v></c></row>`, ""),
			ref:    "B1:D1",
			maxRow: 0,
			maxCol: 3,
		},
		{
			name:   "declared dimension with rows without refs",
			sheet:  worksheet("B1:D2", `<row><c r="B1"><v>1</v></c></row><row><c r="D2"><v>2</v></c></row>`, ""),
			ref:    "B1:D2",
			maxRow: 1,
			maxCol: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ur, err := DiscoverUsedRange(context.Background(), openString(tt.sheet), nil)
			if err != nil {
				t.Fatalf("DiscoverUsedRange failed: %v", err)
			}
			if ur.Ref() != tt.ref {
				t.Errorf("Expected ref %q, got %q", tt.ref, ur.Ref())
			}
			if ur.MaxRowIndex != tt.maxRow || ur.MaxColumnIndex != tt.maxCol {
				t.Errorf("Expected max (%d, %d), got (%d, %d)", tt.maxRow, tt.maxCol, ur.MaxRowIndex, ur.MaxColumnIndex)
			}
			if ur.CellsLackExplicitRefs != tt.positional {
				t.Errorf("Expected CellsLackExplicitRefs %v, got %v", tt.positional, ur.CellsLackExplicitRefs)
			}
			if ur.Empty() != (tt.ref == "") {
				t.Errorf("Expected Empty() %v for ref %q", tt.ref == "", tt.ref)
			}
		})
	}
}

func TestDiscoverUsedRangeMalformed(t *testing.T) {
	hints := []string{"A1:", "B2:A1", "A1:B2:C3", "ZZZZ1:A1", "1A"}
	for _, hint := range hints {
		sheet := worksheet(hint, `<row r="1"><c r="A1"><v>1</v></c></row>`, "")
		_, err := DiscoverUsedRange(context.Background(), openString(sheet), nil)
		if !errors.Is(err, ErrMalformedDimension) {
			t.Errorf("hint %q: expected ErrMalformedDimension, got %v", hint, err)
		}
	}
}

func TestDiscoverUsedRangeCancelled(t *testing.T) {
	var rows strings.Builder
	for i := 0; i < 100; i++ {
		rows.WriteString(`<row><c><v>1</v></c></row>`)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DiscoverUsedRange(ctx, openString(worksheet("", rows.String(), "")), nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
}

func TestDiscoverUsedRangeOpenError(t *testing.T) {
	boom := errors.New("boom")
	_, err := DiscoverUsedRange(context.Background(), func() (io.ReadCloser, error) { return nil, boom }, nil)
	if !errors.Is(err, boom) {
		t.Errorf("Expected open error, got %v", err)
	}
}
