package parser

import (
	"context"
	"encoding/xml"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// Window is the requested cell range, 0-based and inclusive. Negative
// end indexes are unbounded.
type Window struct {
	StartRow    int
	StartColumn int
	EndRow      int
	EndColumn   int
}

// FullWindow covers the whole sheet.
func FullWindow() Window {
	return Window{EndRow: -1, EndColumn: -1}
}

func (w Window) hasColumn(col int) bool {
	return col >= w.StartColumn && (w.EndColumn < 0 || col <= w.EndColumn)
}

// Scanner walks the <sheetData> of one sheet part once, forward only,
// holding at most one row of cells.
//
// States: before sheetData, in row, in cell, after sheetData.
type Scanner struct {
	Window        Window
	UseHeaderRow  bool
	FillEmptyRows bool
	// Merges is nil unless merged cells are filled.
	Merges  *MergeSpans
	Coercer *Coercer

	headerSeen   bool
	headers      map[int]string
	next         int
	materialized int
}

// cell is a decoded in-window cell.
type cell struct {
	col int
	v   models.Value
}

// Scan streams rows to yield until the sheet or the window ends, or yield
// returns false.
func (s *Scanner) Scan(ctx context.Context, r io.Reader, yield func(models.Row) bool) error {
	c, err := newCursor(r)
	if err != nil {
		return err
	}

	// Before sheetData.
	for !c.eof() && !c.isStartOf("worksheet") {
		if err := c.next(); err != nil {
			return err
		}
	}
	if c.eof() {
		return nil
	}
	ok, err := c.descend()
	if err != nil || !ok {
		return err
	}
	for !c.atEnd() && !c.isStartOf("sheetData") {
		if err := c.skip(); err != nil {
			return err
		}
	}
	if !c.isStartOf("sheetData") {
		return nil
	}
	if ok, err = c.descend(); err != nil || !ok {
		return err
	}

	// In rows.
	s.next = s.Window.StartRow
	rowCounter := 0
	for !c.atEnd() {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		se, _ := c.start()
		if se.Name.Local != "row" {
			if err := c.skip(); err != nil {
				return err
			}
			continue
		}

		idx := rowCounter
		if v, ok := attrValue(se, "r"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				idx = n - 1
			}
		}
		rowCounter = idx + 1

		if idx < s.Window.StartRow {
			if s.Merges != nil && s.Merges.RowHasAnchorsReaching(idx, s.Window.StartRow) {
				if _, err := s.readRow(c, idx, true); err != nil {
					return err
				}
			} else if err := c.skip(); err != nil {
				return err
			}
			continue
		}
		if s.Window.EndRow >= 0 && idx > s.Window.EndRow {
			// After the window: only merged rows above idx remain.
			return s.finish(ctx, yield)
		}

		cells, err := s.readRow(c, idx, false)
		if err != nil {
			return err
		}
		more, err := s.emit(ctx, idx, cells, yield)
		if err != nil || !more {
			return err
		}
	}
	return s.finish(ctx, yield)
}

// finish emits the rows after the last physical row that merged spans
// still cover.
func (s *Scanner) finish(ctx context.Context, yield func(models.Row) bool) error {
	if s.Merges == nil || (s.UseHeaderRow && !s.headerSeen) {
		return nil
	}
	last := s.Merges.lastFilledRow(s.Window)
	if last < s.next {
		return nil
	}
	_, err := s.fillGap(ctx, last+1, yield)
	return err
}

// readRow decodes the cells of the current <row>. With captureOnly set
// only merge anchors are decoded and nothing is returned.
func (s *Scanner) readRow(c *cursor, idx int, captureOnly bool) ([]cell, error) {
	if !captureOnly {
		s.materialized++
	}
	ok, err := c.descend()
	if err != nil {
		return nil, err
	}

	var cells []cell
	col := 0
	for ok && !c.atEnd() {
		se, _ := c.start()
		if se.Name.Local != "c" {
			if err := c.skip(); err != nil {
				return nil, err
			}
			continue
		}

		cur := col
		if v, ok := attrValue(se, "r"); ok {
			if ref, err := models.ParseRef(v); err == nil {
				cur = ref.Column
			}
		}
		col = cur + 1

		ref := models.CellRef{Column: cur, Row: idx}
		anchor := s.Merges != nil && s.Merges.IsAnchor(ref)
		inWindow := !captureOnly && s.Window.hasColumn(cur)
		if !inWindow && !anchor {
			if !captureOnly && s.Merges == nil && s.Window.EndColumn >= 0 && cur > s.Window.EndColumn {
				if err := c.skipSiblings(); err != nil {
					return nil, err
				}
				break
			}
			if err := c.skip(); err != nil {
				return nil, err
			}
			continue
		}

		v, err := s.readCell(c, se)
		if err != nil {
			return nil, err
		}
		if anchor && !v.IsAbsent() {
			s.Merges.Observe(ref, v)
		}
		if !inWindow {
			continue
		}
		if s.Merges != nil {
			v = s.Merges.Resolve(ref, v)
		}
		if !v.IsAbsent() {
			cells = append(cells, cell{col: cur, v: v})
		}
	}
	if ok {
		if err := c.ascend(); err != nil {
			return nil, err
		}
	}
	if captureOnly || s.Merges == nil {
		return cells, nil
	}
	return s.fillCovered(idx, cells), nil
}

// fillCovered adds the in-window covered merge cells of row idx that are
// missing from cells.
func (s *Scanner) fillCovered(idx int, cells []cell) []cell {
	added := false
	for _, sp := range s.Merges.rowSpans(idx) {
		v, ok := s.Merges.values[sp.start]
		if !ok {
			continue
		}
		first, last := max(sp.start.Column, s.Window.StartColumn), sp.end.Column
		if s.Window.EndColumn >= 0 {
			last = min(last, s.Window.EndColumn)
		}
		for col := first; col <= last; col++ {
			if idx == sp.start.Row && col == sp.start.Column {
				continue
			}
			if slices.ContainsFunc(cells, func(c cell) bool { return c.col == col }) {
				continue
			}
			cells = append(cells, cell{col: col, v: v})
			added = true
		}
	}
	if added {
		slices.SortFunc(cells, func(a, b cell) int { return a.col - b.col })
	}
	return cells
}

// readCell decodes the current <c> element and moves past it.
func (s *Scanner) readCell(c *cursor, se xml.StartElement) (models.Value, error) {
	typeTag := attr(se, "t")
	style := -1
	if v, ok := attrValue(se, "s"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			style = n
		}
	}

	ok, err := c.descend()
	if err != nil {
		return models.Value{}, err
	}
	var raw string
	have := false
	for ok && !c.atEnd() {
		switch {
		case c.isStartOf("v"):
			raw, err = c.text()
			have = true
		case c.isStartOf("is"):
			raw, err = c.richText()
			typeTag = TypeInlineString
			have = true
		default:
			err = c.skip()
		}
		if err != nil {
			return models.Value{}, err
		}
	}
	if ok {
		if err := c.ascend(); err != nil {
			return models.Value{}, err
		}
	}
	if !have {
		return models.Value{}, nil
	}
	return s.Coercer.Coerce(raw, typeTag, style), nil
}

// emit applies header consumption and gap filling, then yields the row.
func (s *Scanner) emit(ctx context.Context, idx int, cells []cell, yield func(models.Row) bool) (bool, error) {
	if s.UseHeaderRow && !s.headerSeen {
		s.headerSeen = true
		s.headers = headerKeys(cells)
		s.next = idx + 1
		return true, nil
	}
	more, err := s.fillGap(ctx, idx, yield)
	if err != nil || !more {
		return more, err
	}
	s.next = idx + 1
	return yield(s.buildRow(idx, cells)), nil
}

// fillGap emits the rows from s.next up to idx that are missing from the
// XML: empty ones when gap filling is on, and those holding covered merge
// cells in any case.
func (s *Scanner) fillGap(ctx context.Context, idx int, yield func(models.Row) bool) (bool, error) {
	if !s.FillEmptyRows && s.Merges == nil {
		s.next = max(s.next, idx)
		return true, nil
	}
	for s.next < idx {
		if err := checkCancel(ctx); err != nil {
			return false, err
		}
		row := s.next
		if !s.FillEmptyRows {
			if row = s.Merges.nextCoveredRow(row); row < 0 || row >= idx {
				s.next = idx
				return true, nil
			}
		}
		s.next = row + 1

		var cells []cell
		if s.Merges != nil {
			cells = s.fillCovered(row, nil)
		}
		if !s.FillEmptyRows && len(cells) == 0 {
			continue
		}
		if !yield(s.buildRow(row, cells)) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Scanner) buildRow(idx int, cells []cell) models.Row {
	row := models.NewRow(idx, len(cells))
	for _, c := range cells {
		if s.UseHeaderRow {
			if key, ok := s.headers[c.col]; ok {
				row.Set(key, c.v)
			}
			continue
		}
		row.Set(models.ColumnName(c.col), c.v)
	}
	return row
}

// headerKeys maps columns to header texts. Blank headers are excluded and
// a repeated header keeps its first column.
func headerKeys(cells []cell) map[int]string {
	keys := make(map[int]string, len(cells))
	seen := make(map[string]bool, len(cells))
	for _, c := range cells {
		text := c.v.String()
		if strings.TrimSpace(text) == "" || seen[text] {
			continue
		}
		seen[text] = true
		keys[c.col] = text
	}
	return keys
}
