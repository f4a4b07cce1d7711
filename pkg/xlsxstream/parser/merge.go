package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// mergeSpan is one declared merged rectangle; start is the anchor.
type mergeSpan struct {
	start, end models.CellRef
}

func (sp mergeSpan) contains(ref models.CellRef) bool {
	return ref.Row >= sp.start.Row && ref.Row <= sp.end.Row &&
		ref.Column >= sp.start.Column && ref.Column <= sp.end.Column
}

// MergeSpans resolves covered cells of merged ranges to their anchor's
// value. Spans are kept as rectangles, so a whole-sheet merge costs the
// same as a two-cell one. Only anchors hold values.
type MergeSpans struct {
	spans      []mergeSpan
	anchors    map[models.CellRef]int // anchor -> span index
	anchorRows map[int]int            // row -> last row reached by its anchors
	values     map[models.CellRef]models.Value

	cacheRow   int
	cacheValid bool
	cache      []mergeSpan
}

func newMergeSpans() *MergeSpans {
	return &MergeSpans{
		anchors:    make(map[models.CellRef]int),
		anchorRows: make(map[int]int),
		values:     make(map[models.CellRef]models.Value),
	}
}

// LoadMerges reads the <mergeCell ref> declarations of a sheet part.
func LoadMerges(ctx context.Context, r io.Reader) (*MergeSpans, error) {
	m := newMergeSpans()
	decoder := newDecoder(r)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sheetData":
			// Merges follow the cell data; skip it wholesale.
			if err := checkCancel(ctx); err != nil {
				return nil, err
			}
			if err := decoder.Skip(); err != nil {
				return nil, err
			}
		case "mergeCell":
			ref, _ := attrValue(se, "ref")
			if err := m.add(ref); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *MergeSpans) add(ref string) error {
	start, end, err := models.ParseRange(ref)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformedMergeDeclaration, ref, err)
	}
	if end.Row < start.Row || end.Column < start.Column {
		return fmt.Errorf("%w: %q: end before start", ErrMalformedMergeDeclaration, ref)
	}
	if start == end {
		return nil
	}
	if _, ok := m.anchors[start]; ok {
		return nil
	}

	m.anchors[start] = len(m.spans)
	m.spans = append(m.spans, mergeSpan{start: start, end: end})
	if last, ok := m.anchorRows[start.Row]; !ok || end.Row > last {
		m.anchorRows[start.Row] = end.Row
	}
	m.cacheValid = false
	return nil
}

// rowSpans returns the spans crossing row, in declaration order.
func (m *MergeSpans) rowSpans(row int) []mergeSpan {
	if m.cacheValid && m.cacheRow == row {
		return m.cache
	}
	m.cache = m.cache[:0]
	for _, sp := range m.spans {
		if row >= sp.start.Row && row <= sp.end.Row {
			m.cache = append(m.cache, sp)
		}
	}
	m.cacheRow, m.cacheValid = row, true
	return m.cache
}

// Len returns the number of spans.
func (m *MergeSpans) Len() int {
	return len(m.spans)
}

// IsAnchor reports whether ref is the top-left cell of a span.
func (m *MergeSpans) IsAnchor(ref models.CellRef) bool {
	_, ok := m.anchors[ref]
	return ok
}

// RowHasAnchorsReaching reports whether row holds an anchor whose span
// reaches minRow or below.
func (m *MergeSpans) RowHasAnchorsReaching(row, minRow int) bool {
	last, ok := m.anchorRows[row]
	return ok && last >= minRow
}

// Observe records the value scanned at an anchor cell.
func (m *MergeSpans) Observe(ref models.CellRef, v models.Value) {
	if _, ok := m.anchors[ref]; ok {
		m.values[ref] = v
	}
}

// Resolve returns the effective value of ref: the anchor's value for
// covered cells, v otherwise.
func (m *MergeSpans) Resolve(ref models.CellRef, v models.Value) models.Value {
	for _, sp := range m.rowSpans(ref.Row) {
		if ref == sp.start || !sp.contains(ref) {
			continue
		}
		if av, ok := m.values[sp.start]; ok {
			return av
		}
		return v
	}
	return v
}

// nextCoveredRow returns the first row at or after from that some span
// crosses, or -1.
func (m *MergeSpans) nextCoveredRow(from int) int {
	next := -1
	for _, sp := range m.spans {
		if sp.end.Row < from {
			continue
		}
		row := max(sp.start.Row, from)
		if next < 0 || row < next {
			next = row
		}
	}
	return next
}

// lastFilledRow returns the last row, within win, that a span with a known
// anchor value still covers, or -1.
func (m *MergeSpans) lastFilledRow(win Window) int {
	last := -1
	for _, sp := range m.spans {
		if _, ok := m.values[sp.start]; !ok {
			continue
		}
		if sp.end.Column < win.StartColumn || (win.EndColumn >= 0 && sp.start.Column > win.EndColumn) {
			continue
		}
		end := sp.end.Row
		if win.EndRow >= 0 {
			end = min(end, win.EndRow)
		}
		last = max(last, end)
	}
	return last
}
