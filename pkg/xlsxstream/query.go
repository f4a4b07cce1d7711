package xlsxstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/parser"
)

// UsedRange returns the used range of a sheet ("" for the first sheet).
func (r *Reader) UsedRange(ctx context.Context, sheet string) (models.UsedRange, error) {
	if r.closed {
		return models.UsedRange{}, ErrClosed
	}
	rec, err := r.Resolve(sheet)
	if err != nil {
		return models.UsedRange{}, err
	}
	return r.usedRange(ctx, rec)
}

func (r *Reader) usedRange(ctx context.Context, rec models.SheetRecord) (models.UsedRange, error) {
	ur, err := parser.DiscoverUsedRange(ctx, r.opener(rec), r.logger)
	if err != nil {
		return models.UsedRange{}, sheetError(rec, "dimension", err)
	}
	return ur, nil
}

func (r *Reader) opener(rec models.SheetRecord) parser.OpenFunc {
	return func() (io.ReadCloser, error) {
		return r.archive.Open(rec.Path)
	}
}

// Rows streams the rows of a query. Rows are decoded as the sequence is
// consumed; stopping early releases the sheet part. A failure is yielded
// once as the last element. Cancelling ctx ends the sequence within one
// row with an error matching ErrCancelled.
func (r *Reader) Rows(ctx context.Context, q Query) iter.Seq2[models.Row, error] {
	return func(yield func(models.Row, error) bool) {
		stopped := false
		err := r.scan(ctx, q, func(row models.Row) bool {
			if !yield(row, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(models.Row{}, err)
		}
	}
}

// All collects every row of a query.
func (r *Reader) All(ctx context.Context, q Query) ([]models.Row, error) {
	var rows []models.Row
	for row, err := range r.Rows(ctx, q) {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Each calls fn for every row, stopping at the first error.
func (r *Reader) Each(ctx context.Context, q Query, fn func(models.Row) error) error {
	for row, err := range r.Rows(ctx, q) {
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// NamedRange streams the range a defined name refers to. Sheet, StartCell
// and EndCell of q are replaced by the name's first area.
func (r *Reader) NamedRange(ctx context.Context, name string, q Query) iter.Seq2[models.Row, error] {
	dn, err := r.definedName(name, q.Sheet)
	if err != nil {
		return func(yield func(models.Row, error) bool) {
			yield(models.Row{}, err)
		}
	}
	q.Sheet = dn.Sheet
	q.StartCell = dn.Start.String()
	q.EndCell = dn.End.String()
	return r.Rows(ctx, q)
}

// definedName finds a name, preferring one scoped to sheet.
func (r *Reader) definedName(name, sheet string) (models.DefinedName, error) {
	var found *models.DefinedName
	for i, dn := range r.workbook.Names {
		if dn.Name != name {
			continue
		}
		if found == nil {
			found = &r.workbook.Names[i]
		}
		if sheet != "" && dn.LocalSheetID != nil {
			if rec, err := r.SheetByIndex(*dn.LocalSheetID); err == nil && rec.Name == sheet {
				found = &r.workbook.Names[i]
				break
			}
		}
	}
	if found == nil {
		return models.DefinedName{}, fmt.Errorf("%w: %q", ErrNameNotFound, name)
	}
	if !found.IsRange() {
		return models.DefinedName{}, fmt.Errorf("%w: defined name %q refers to %q", ErrSheetNotFound, name, found.RefersTo)
	}
	return *found, nil
}

// scan runs one query: resolve, validate the dimension, load merges, then
// stream.
func (r *Reader) scan(ctx context.Context, q Query, yield func(models.Row) bool) error {
	if r.closed {
		return ErrClosed
	}
	rec, err := r.Resolve(q.Sheet)
	if err != nil {
		return err
	}
	win, err := parseWindow(q.StartCell, q.EndCell)
	if err != nil {
		return err
	}
	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}

	ur, err := r.usedRange(ctx, rec)
	if err != nil {
		return err
	}
	r.logger.Debug("scanning sheet", "sheet", rec.Name, "used_range", ur.Ref(), "positional", ur.CellsLackExplicitRefs)

	var merges *parser.MergeSpans
	if q.FillMergedCells {
		rc, err := r.archive.Open(rec.Path)
		if err != nil {
			return sheetError(rec, "merges", err)
		}
		merges, err = parser.LoadMerges(ctx, rc)
		rc.Close()
		if err != nil {
			return sheetError(rec, "merges", err)
		}
		r.logger.Debug("loaded merged cells", "sheet", rec.Name, "spans", merges.Len())
	}

	sc := &parser.Scanner{
		Window:        win,
		UseHeaderRow:  q.UseHeaderRow,
		FillEmptyRows: q.ShouldFillEmptyRows(),
		Merges:        merges,
		Coercer:       r.coercer(),
	}

	rc, err := r.archive.Open(rec.Path)
	if err != nil {
		return sheetError(rec, "rows", err)
	}
	defer rc.Close()

	if err := sc.Scan(ctx, rc, yield); err != nil {
		return sheetError(rec, "rows", err)
	}
	return nil
}

// parseWindow converts query cells into a scan window.
func parseWindow(startCell, endCell string) (parser.Window, error) {
	win := parser.FullWindow()
	if startCell != "" {
		start, err := models.ParseRef(startCell)
		if err != nil {
			return win, fmt.Errorf("start cell: %w", err)
		}
		win.StartRow, win.StartColumn = start.Row, start.Column
	}
	if endCell != "" {
		end, err := models.ParseRef(endCell)
		if err != nil {
			return win, fmt.Errorf("end cell: %w", err)
		}
		if end.Row < win.StartRow || end.Column < win.StartColumn {
			return win, fmt.Errorf("end cell %s is before start cell %s", endCell, startCell)
		}
		win.EndRow, win.EndColumn = end.Row, end.Column
	}
	return win, nil
}

// sheetError wraps structural failures; cancellation passes through.
func sheetError(rec models.SheetRecord, component string, err error) error {
	if errors.Is(err, ErrCancelled) {
		return err
	}
	return NewSheetError(rec.Name, component, err)
}
