package domain

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrCreditsExhausted = errors.New("credits exhausted")
	ErrProviderFailure  = errors.New("provider failure")
)
