package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery = errors.New("invalid query")
	ErrEmbedding    = errors.New("embedding failure")
	ErrIndexShape   = errors.New("unrecognized index response shape")
	ErrRetrieval    = errors.New("retrieval failure")
	ErrPageNotFound = errors.New("page not found")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
