package errors

import (
	"errors"
)

var (
	ErrUserRequired   = errors.New("userId is required")
	ErrEmptyOrder     = errors.New("order must contain at least one line")
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderForbidden = errors.New("order belongs to another user")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserNoEmail    = errors.New("user has no email configured")
)
