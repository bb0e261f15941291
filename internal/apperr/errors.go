package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed classification response")
	ErrClassification    = errors.New("classification failed")
)
