package executor

import "errors"

var (
	ErrEmptyName          = errors.New("executor: name must not be empty")
	ErrAlreadyRegistered  = errors.New("executor: already registered")
	ErrNotFound           = errors.New("executor: not found")
)
