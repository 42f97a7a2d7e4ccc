package chathub

import "errors"

// Failures returned by core operations. A failed operation never mutates state.
var (
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("user not in session")
	ErrInvalidState  = errors.New("invalid state")
	ErrSuspended     = errors.New("account suspended")
)
