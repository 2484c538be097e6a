// README: Error taxonomy shared by services and the HTTP layer.
package types

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrCapacityExceeded = errors.New("no seats available")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrDuplicateRequest = errors.New("duplicate ride request")
	ErrConflict         = errors.New("state conflict")
)
