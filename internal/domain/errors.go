package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidQuality = errors.New("invalid quality")
)
