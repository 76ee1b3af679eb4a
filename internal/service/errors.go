package service

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyDecided     = errors.New("appointment already decided")
)
