package models

import (
	"testing"
	"time"
)

func TestRefRoundTrip(t *testing.T) {
	cols := []int{0, 1, 25, 26, 27, 51, 52, 701, 702, 703, 16383}
	rows := []int{0, 1, 9, 99, 65535, 65536, 1048575}

	for _, c := range cols {
		for _, r := range rows {
			ref := CellRef{Column: c, Row: r}
			got, err := ParseRef(ref.String())
			if err != nil {
				t.Fatalf("ParseRef(%q) failed: %v", ref.String(), err)
			}
			if got != ref {
				t.Errorf("ParseRef(%q) = %+v, expected %+v", ref.String(), got, ref)
			}
		}
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		input    string
		expected CellRef
		wantErr  bool
	}{
		{"A1", CellRef{0, 0}, false},
		{"B2", CellRef{1, 1}, false},
		{"$AA$10", CellRef{26, 9}, false},
		{"XFD1048576", CellRef{16383, 1048575}, false},
		{"1A", CellRef{}, true},
		{"", CellRef{}, true},
		{"A0", CellRef{}, true},
	}

	for _, tt := range tests {
		got, err := ParseRef(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRef(%q) expected error, got %+v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRef(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseRef(%q) = %+v, expected %+v", tt.input, got, tt.expected)
		}
	}
}

func TestParseRange(t *testing.T) {
	start, end, err := ParseRange("B2:D10")
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if start != (CellRef{1, 1}) || end != (CellRef{3, 9}) {
		t.Errorf("ParseRange = %+v %+v", start, end)
	}

	start, end, err = ParseRange("C3")
	if err != nil {
		t.Fatalf("ParseRange single failed: %v", err)
	}
	if start != end {
		t.Errorf("Expected single-cell range, got %+v %+v", start, end)
	}

	for _, bad := range []string{"A1:B2:C3", ":B2", "A1:?"} {
		if _, _, err := ParseRange(bad); err == nil {
			t.Errorf("ParseRange(%q) expected error", bad)
		}
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		col  int
		name string
	}{
		{0, "A"},
		{25, "Z"},
		{26, "AA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		if got := ColumnName(tt.col); got != tt.name {
			t.Errorf("ColumnName(%d) = %q, expected %q", tt.col, got, tt.name)
		}
		if got, err := ColumnIndex(tt.name); err != nil || got != tt.col {
			t.Errorf("ColumnIndex(%q) = %d, %v, expected %d", tt.name, got, err, tt.col)
		}
	}
}

func TestRowKeepsColumnOrder(t *testing.T) {
	row := NewRow(3, 2)
	row.Set("C", Number(1))
	row.Set("A", String("x"))
	row.Set("C", Number(2))

	if row.Len() != 2 {
		t.Fatalf("Expected 2 cells, got %d", row.Len())
	}
	if keys := row.Keys(); keys[0] != "C" || keys[1] != "A" {
		t.Errorf("Unexpected key order %v", keys)
	}
	if v, _ := row.Get("C"); v.Num != 2 {
		t.Errorf("Expected overwritten value 2, got %v", v.Num)
	}
	if _, ok := row.Get("B"); ok {
		t.Error("Absent key B reported present")
	}

	data, err := row.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(data) != `{"C":2,"A":"x"}` {
		t.Errorf("Unexpected JSON %s", data)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v        Value
		expected string
	}{
		{String("abc"), "abc"},
		{Number(44.5), "44.5"},
		{Number(3), "3"},
		{Bool(true), "true"},
		{Date(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)), "2023-01-01"},
		{Date(time.Date(2023, 1, 1, 12, 30, 0, 0, time.UTC)), "2023-01-01 12:30:00"},
		{FormulaError("#N/A"), "#N/A"},
		{Value{}, ""},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.expected {
			t.Errorf("%v.String() = %q, expected %q", tt.v.Kind, got, tt.expected)
		}
	}
}
