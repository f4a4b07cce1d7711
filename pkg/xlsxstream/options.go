// Package xlsxstream queries xlsx worksheets as a forward-only stream of
// typed rows, with bounded memory regardless of file size.
package xlsxstream

import (
	"log/slog"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/parser"
)

// Config configures a Reader.
type Config struct {
	// SpillThreshold is the shared-strings part size in bytes above which
	// the table is kept in a temporary file. 0 uses DefaultSpillThreshold,
	// a negative value never spills.
	SpillThreshold int64
	// SpillDir is where temporary files go ("" for the system default).
	SpillDir string
	// SheetAliases maps alternative names to real sheet names.
	SheetAliases map[string]string
	// Logger receives debug and warning events. Nil discards them.
	Logger *slog.Logger
}

// DefaultSpillThreshold is used when Config.SpillThreshold is 0.
const DefaultSpillThreshold = parser.DefaultSpillThreshold

// DefaultConfig returns the default reader configuration.
func DefaultConfig() Config {
	return Config{SpillThreshold: DefaultSpillThreshold}
}

func (c Config) spillThreshold() int64 {
	if c.SpillThreshold == 0 {
		return DefaultSpillThreshold
	}
	return c.SpillThreshold
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Query selects a sheet range and how rows are keyed.
type Query struct {
	// Sheet is the sheet name or alias; "" selects the first sheet.
	Sheet string
	// StartCell is the top-left cell of the range ("" for A1).
	StartCell string
	// EndCell is the bottom-right cell, inclusive ("" for unbounded).
	EndCell string
	// UseHeaderRow consumes the first row and keys rows by its texts.
	// Otherwise rows are keyed by column letters.
	UseHeaderRow bool
	// FillMergedCells gives covered cells of merged ranges the anchor value.
	FillMergedCells bool
	// FillEmptyRows synthesizes empty rows for gaps in row numbers.
	// If nil, defaults to true.
	FillEmptyRows *bool
}

// ShouldFillEmptyRows returns whether gaps are filled with empty rows.
func (q Query) ShouldFillEmptyRows() bool {
	if q.FillEmptyRows != nil {
		return *q.FillEmptyRows
	}
	return true
}
