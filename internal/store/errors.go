package store

import "errors"

// Sentinels returned by every store implementation. The app layer maps these
// onto its error taxonomy, so fakes in tests must return the same values.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrDuplicate     = errors.New("store: duplicate")
	ErrQuotaExceeded = errors.New("store: vote quota exceeded")
)
