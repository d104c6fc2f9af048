package repository

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("user with this email already exists")
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
