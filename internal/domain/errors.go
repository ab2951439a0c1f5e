package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnknownRole           = errors.New("unknown role")
	ErrMissingRule           = errors.New("missing approval rule")
	ErrAccessDenied          = errors.New("access denied")
	ErrDuplicateRequest      = errors.New("duplicate request")
	ErrInvalidState          = errors.New("invalid state")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrSelfDemotion          = errors.New("self demotion")
	ErrInvalidDuration       = errors.New("invalid duration")
	ErrMissingReason         = errors.New("missing reason")
)
