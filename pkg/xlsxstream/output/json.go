// Package output serializes query results as JSON.
package output

import (
	"bufio"
	"encoding/json"
	"io"
	"iter"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// ToJSON serializes any value to JSON.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// RowsToJSON collects rows into one JSON array. An empty query gives [].
func RowsToJSON(rows []models.Row, pretty bool) ([]byte, error) {
	if rows == nil {
		rows = []models.Row{}
	}
	return ToJSON(rows, pretty)
}

// WriteLines writes one JSON object per row and newline, as the rows
// arrive. It stops at the first query or write error.
func WriteLines(w io.Writer, rows iter.Seq2[models.Row, error]) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	n := 0
	for row, err := range rows {
		if err != nil {
			bw.Flush()
			return n, err
		}
		if err := enc.Encode(row); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// SheetSummary is the listing form of a sheet record.
type SheetSummary struct {
	Index int               `json:"index"`
	Name  string            `json:"name"`
	State models.SheetState `json:"state"`
	Path  string            `json:"path"`
}

// Sheets converts sheet records to their listing form.
func Sheets(records []models.SheetRecord) []SheetSummary {
	out := make([]SheetSummary, len(records))
	for i, r := range records {
		out[i] = SheetSummary{Index: r.Index, Name: r.Name, State: r.State, Path: r.Path}
	}
	return out
}

// RangeSummary is the listing form of a used range.
type RangeSummary struct {
	Sheet          string `json:"sheet"`
	Ref            string `json:"ref,omitempty"`
	MaxRowIndex    int    `json:"max_row_index"`
	MaxColumnIndex int    `json:"max_column_index"`
	Positional     bool   `json:"positional,omitempty"`
}

// Range converts a used range to its listing form.
func Range(sheet string, ur models.UsedRange) RangeSummary {
	return RangeSummary{
		Sheet:          sheet,
		Ref:            ur.Ref(),
		MaxRowIndex:    ur.MaxRowIndex,
		MaxColumnIndex: ur.MaxColumnIndex,
		Positional:     ur.CellsLackExplicitRefs,
	}
}
