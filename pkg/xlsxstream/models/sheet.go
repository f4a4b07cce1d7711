package models

// SheetState is the visibility declared for a sheet in the workbook.
type SheetState string

const (
	SheetVisible    SheetState = "visible"
	SheetHidden     SheetState = "hidden"
	SheetVeryHidden SheetState = "veryHidden"
)

// SheetRecord describes one worksheet of a container.
type SheetRecord struct {
	// Name is the sheet display name.
	Name string `json:"name"`
	// State is the sheet visibility.
	State SheetState `json:"state"`
	// ID is the sheetId attribute from the workbook.
	ID string `json:"id,omitempty"`
	// RelationshipID is the r:id linking the sheet to its part.
	RelationshipID string `json:"relationship_id,omitempty"`
	// Path is the container entry holding the sheet XML.
	Path string `json:"path"`
	// Index is the 0-based position in the workbook manifest.
	Index int `json:"index"`
}

// UsedRange is the extent of the cells present in a sheet.
type UsedRange struct {
	// MaxRowIndex is the 0-based index of the last used row, -1 when empty.
	MaxRowIndex int `json:"max_row_index"`
	// MaxColumnIndex is the 0-based index of the last used column, -1 when empty.
	MaxColumnIndex int `json:"max_column_index"`
	// Start is the top-left corner, nil when empty.
	Start *CellRef `json:"start,omitempty"`
	// End is the bottom-right corner, nil when empty.
	End *CellRef `json:"end,omitempty"`
	// CellsLackExplicitRefs is set when rows or cells omit their coordinate
	// attribute, so columns must be counted positionally.
	CellsLackExplicitRefs bool `json:"cells_lack_explicit_refs,omitempty"`
}

// Empty reports whether no cell was found.
func (u UsedRange) Empty() bool {
	return u.MaxRowIndex < 0 && u.MaxColumnIndex < 0
}

// Ref renders the range as "A1:D10", or "" when empty.
func (u UsedRange) Ref() string {
	if u.Start == nil || u.End == nil {
		return ""
	}
	return u.Start.String() + ":" + u.End.String()
}
