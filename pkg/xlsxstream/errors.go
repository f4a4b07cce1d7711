package xlsxstream

import (
	"errors"
	"fmt"

	"github.com/ukaji3/xlsxstream/pkg/xlsxstream/parser"
)

// ErrSheetNotFound indicates that the requested sheet matched no record
// and no alias.
var ErrSheetNotFound = parser.ErrSheetNotFound

// ErrMalformedDimension indicates an unparsable dimension hint.
var ErrMalformedDimension = parser.ErrMalformedDimension

// ErrMalformedMergeDeclaration indicates an unparsable merged range.
var ErrMalformedMergeDeclaration = parser.ErrMalformedMergeDeclaration

// ErrContainerStructureInvalid indicates that required container parts are
// missing or unreadable.
var ErrContainerStructureInvalid = parser.ErrContainerStructureInvalid

// ErrCancelled indicates that the caller cancelled the query. The error
// also wraps the context error.
var ErrCancelled = parser.ErrCancelled

// ErrClosed indicates use of a closed Reader.
var ErrClosed = errors.New("reader closed")

// ErrNameNotFound indicates that no defined name matched.
var ErrNameNotFound = errors.New("defined name not found")

// SheetError represents a structural error in one sheet.
type SheetError struct {
	SheetName string
	Component string // "dimension", "merges", "rows", "styles", "shared_strings"
	Err       error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q (%s): %v", e.SheetName, e.Component, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(sheetName, component string, err error) *SheetError {
	return &SheetError{
		SheetName: sheetName,
		Component: component,
		Err:       err,
	}
}
