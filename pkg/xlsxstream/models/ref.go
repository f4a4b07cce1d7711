package models

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Grid limits of the xlsx format (1-based, inclusive).
const (
	MaxColumns = excelize.MaxColumns
	MaxRows    = excelize.TotalRows
)

// CellRef is a 0-based cell coordinate.
type CellRef struct {
	// Column is the 0-based column index (A = 0).
	Column int `json:"column"`
	// Row is the 0-based row index (row "1" = 0).
	Row int `json:"row"`
}

// ParseRef parses an A1-style reference such as "B12" or "$B$12".
func ParseRef(s string) (CellRef, error) {
	name := strings.ReplaceAll(strings.TrimSpace(s), "$", "")
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return CellRef{}, fmt.Errorf("invalid cell reference %q: %w", s, err)
	}
	return CellRef{Column: col - 1, Row: row - 1}, nil
}

// String formats the reference in A1 style. Out-of-grid references
// format as an empty string.
func (c CellRef) String() string {
	name, err := excelize.CoordinatesToCellName(c.Column+1, c.Row+1)
	if err != nil {
		return ""
	}
	return name
}

// Valid reports whether the reference lies inside the sheet grid.
func (c CellRef) Valid() bool {
	return c.Column >= 0 && c.Column < MaxColumns && c.Row >= 0 && c.Row < MaxRows
}

// ColumnName converts a 0-based column index to its letters ("A", "AB").
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}

// ColumnIndex converts column letters to a 0-based index.
func ColumnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return -1, err
	}
	return n - 1, nil
}

// ParseRange parses "A1:D10" (or a single "A1") into its two corners.
func ParseRange(s string) (CellRef, CellRef, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 2 || parts[0] == "" {
		return CellRef{}, CellRef{}, fmt.Errorf("invalid range %q", s)
	}
	start, err := ParseRef(parts[0])
	if err != nil {
		return CellRef{}, CellRef{}, err
	}
	end := start
	if len(parts) == 2 {
		if end, err = ParseRef(parts[1]); err != nil {
			return CellRef{}, CellRef{}, err
		}
	}
	return start, end, nil
}
