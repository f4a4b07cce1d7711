package models

// DefinedName is a workbook-level or sheet-local name such as a print area
// or a named range.
type DefinedName struct {
	// Name is the defined name, e.g. "_xlnm.Print_Area" or "Prices".
	Name string `json:"name"`
	// RefersTo is the raw formula text, e.g. "'Sheet 1'!$A$1:$D$10".
	RefersTo string `json:"refers_to"`
	// LocalSheetID is the 0-based sheet scope, nil for workbook scope.
	LocalSheetID *int `json:"local_sheet_id,omitempty"`
	// Sheet is the sheet the first area refers to ("" when not a plain range).
	Sheet string `json:"sheet,omitempty"`
	// Start is the top-left corner of the first area.
	Start CellRef `json:"start"`
	// End is the bottom-right corner of the first area (inclusive).
	End CellRef `json:"end"`
}

// IsRange reports whether the name resolved to a sheet and a cell range.
func (d DefinedName) IsRange() bool {
	return d.Sheet != ""
}
