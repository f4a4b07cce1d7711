package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/models"
)

// OpenFunc opens a fresh forward-only reader over a sheet part.
type OpenFunc func() (io.ReadCloser, error)

// dimensionProbe is what the first pass learns before any cell value.
type dimensionProbe struct {
	hint       string
	hasHint    bool
	missingRef bool
}

// DiscoverUsedRange computes the used range of a sheet. The declared
// <dimension> is trusted when it names two corners and the cells carry
// coordinates; otherwise the sheet is pre-scanned once.
func DiscoverUsedRange(ctx context.Context, open OpenFunc, logger *slog.Logger) (models.UsedRange, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	probe, err := withPart(open, func(r io.Reader) (dimensionProbe, error) {
		return probeDimension(r)
	})
	if err != nil {
		return models.UsedRange{}, err
	}

	if probe.hasHint && !probe.missingRef && strings.Contains(probe.hint, ":") {
		start, end, err := models.ParseRange(probe.hint)
		if err != nil {
			return models.UsedRange{}, fmt.Errorf("%w: %q: %v", ErrMalformedDimension, probe.hint, err)
		}
		if end.Row < start.Row || end.Column < start.Column {
			return models.UsedRange{}, fmt.Errorf("%w: %q: end before start", ErrMalformedDimension, probe.hint)
		}
		return models.UsedRange{
			MaxRowIndex:    end.Row,
			MaxColumnIndex: end.Column,
			Start:          &start,
			End:            &end,
		}, nil
	}
	if probe.hasHint {
		if _, _, err := models.ParseRange(probe.hint); err != nil {
			return models.UsedRange{}, fmt.Errorf("%w: %q: %v", ErrMalformedDimension, probe.hint, err)
		}
	}

	logger.Debug("pre-scanning sheet for used range", "hint", probe.hint, "missing_refs", probe.missingRef)
	return withPart(open, func(r io.Reader) (models.UsedRange, error) {
		return scanExtent(ctx, r)
	})
}

func withPart[T any](open OpenFunc, fn func(io.Reader) (T, error)) (T, error) {
	rc, err := open()
	if err != nil {
		var zero T
		return zero, err
	}
	defer rc.Close()
	return fn(rc)
}

// probeDimension reads up to the first cell.
func probeDimension(r io.Reader) (dimensionProbe, error) {
	var p dimensionProbe
	decoder := newDecoder(r)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return p, nil
		}
		if err != nil {
			return p, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "dimension":
			p.hint, p.hasHint = attrValue(se, "ref")
			p.hint = strings.TrimSpace(p.hint)
		case "c":
			_, ok := attrValue(se, "r")
			p.missingRef = !ok
			return p, nil
		}
	}
}

// scanExtent streams every row once and tracks the bounding box of the
// cells, without decoding their values. Rows without cells do not count.
func scanExtent(ctx context.Context, r io.Reader) (models.UsedRange, error) {
	minRow, maxRow := -1, -1
	minCol, maxCol := -1, -1
	missingRef := false
	nextRow, nextCol, row := 0, 0, -1

	decoder := newDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.UsedRange{}, err
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "row":
			if err := checkCancel(ctx); err != nil {
				return models.UsedRange{}, err
			}
			row = nextRow
			if v, ok := attrValue(se, "r"); ok {
				if n, err := strconv.Atoi(v); err == nil && n > 0 {
					row = n - 1
				}
			}
			nextRow, nextCol = row+1, 0
		case "c":
			col := nextCol
			if v, ok := attrValue(se, "r"); ok {
				if ref, err := models.ParseRef(v); err == nil {
					col = ref.Column
				}
			} else {
				missingRef = true
			}
			nextCol = col + 1
			if minRow < 0 || row < minRow {
				minRow = row
			}
			if row > maxRow {
				maxRow = row
			}
			if minCol < 0 || col < minCol {
				minCol = col
			}
			if col > maxCol {
				maxCol = col
			}
			if err := decoder.Skip(); err != nil {
				return models.UsedRange{}, err
			}
		}
	}

	ur := models.UsedRange{
		MaxRowIndex:           maxRow,
		MaxColumnIndex:        maxCol,
		CellsLackExplicitRefs: missingRef,
	}
	if minRow >= 0 && minCol >= 0 {
		start := models.CellRef{Column: minCol, Row: minRow}
		end := models.CellRef{Column: maxCol, Row: maxRow}
		ur.Start, ur.End = &start, &end
	}
	return ur, nil
}
