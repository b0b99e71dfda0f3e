package internalerr

import "errors"

// Sentinel errors shared across the audit packages
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMalformedResponse = errors.New("malformed response")
)
