package domain

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/tagdex/internal/domain/batch"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrArticleNotFound signals a missing article. Matches ErrNotFound.
	ErrArticleNotFound = fmt.Errorf("article %w", ErrNotFound)
	// ErrTagNotFound signals that no live tag carries the requested name. Matches ErrNotFound.
	ErrTagNotFound = fmt.Errorf("tag %w", ErrNotFound)
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrStoreUnavailable signals that the search engine stayed unreachable after retries.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrPartialFailure signals that a multi-item mutation applied to some items only.
	ErrPartialFailure = errors.New("partial failure")
	// ErrInvalidArgument signals malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// PartialFailureError carries the per-item outcomes of a mutation that did not fully apply.
// errors.Is(err, ErrPartialFailure) holds.
type PartialFailureError struct {
	Results []batch.Result
	// Cause is set when the mutation stopped early; Results then hold only the items
	// processed before it, and errors.Is matches Cause as well.
	Cause error
}

func (e *PartialFailureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: stopped after %d items: %v", ErrPartialFailure.Error(), len(e.Results), e.Cause)
	}
	return fmt.Sprintf("%s: %d of %d items failed",
		ErrPartialFailure.Error(), len(batch.Failed(e.Results)), len(e.Results))
}

func (e *PartialFailureError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrPartialFailure, e.Cause}
	}
	return []error{ErrPartialFailure}
}

// Interrupted reports a mutation that failed with cause after results were already
// processed. With nothing processed the cause is returned unchanged.
func Interrupted(results []batch.Result, cause error) error {
	if len(results) == 0 {
		return cause
	}
	return &PartialFailureError{Results: results, Cause: cause}
}

// CheckResults returns a *PartialFailureError when any result failed, nil otherwise.
func CheckResults(results []batch.Result) error {
	if len(batch.Failed(results)) == 0 {
		return nil
	}
	return &PartialFailureError{Results: results}
}
