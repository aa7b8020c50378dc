package postgres

import "focus/internal/domain"

// Local aliases keep the repository files' error-wrapping lines short.
var (
	domainErrNotFound = domain.ErrNotFound
	domainErrConflict = domain.ErrConflict
)
