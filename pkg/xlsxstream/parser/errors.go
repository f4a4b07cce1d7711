package parser

import (
	"context"
	"errors"
	"fmt"
)

// ErrSheetNotFound indicates that no sheet or alias matched a requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrMalformedDimension indicates an unparsable <dimension ref> hint.
var ErrMalformedDimension = errors.New("malformed dimension")

// ErrMalformedMergeDeclaration indicates an unparsable <mergeCell ref>.
var ErrMalformedMergeDeclaration = errors.New("malformed merge declaration")

// ErrContainerStructureInvalid indicates missing required container parts.
var ErrContainerStructureInvalid = errors.New("invalid container structure")

// ErrCancelled indicates that the caller cancelled a running scan.
var ErrCancelled = errors.New("query cancelled")

// checkCancel returns an error wrapping both ErrCancelled and the context
// error once ctx is done.
func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
