package impl

import "errors"

var (
	ErrEmptyPassword = errors.New("empty password")
	ErrTokenSpace    = errors.New("could not generate a unique credential")
)
