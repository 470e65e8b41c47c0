package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrExternalService = errors.New("external service unavailable")
	ErrNotActionable   = errors.New("user is not pending review")
	ErrInternal        = errors.New("internal error")
)

// ErrNoCandidates is returned when every Found user is already claimed.
var ErrNoCandidates = fmt.Errorf("%w: no users awaiting review", ErrNotFound)
