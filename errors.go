package tagdex

import "github.com/kailas-cloud/tagdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrArticleNotFound  = domain.ErrArticleNotFound
	ErrTagNotFound      = domain.ErrTagNotFound
	ErrAlreadyExists    = domain.ErrAlreadyExists
	ErrStoreUnavailable = domain.ErrStoreUnavailable
	ErrPartialFailure   = domain.ErrPartialFailure
	ErrInvalidArgument  = domain.ErrInvalidArgument
)
