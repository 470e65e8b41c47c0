package domain

import "fmt"

// Status is the review state of a user. Found is the initial state; Approved
// and Denied end the review cycle.
type Status string

const (
	StatusFound    Status = "Found"
	StatusApproved Status = "Approved"
	StatusDenied   Status = "Denied"
)

// ParseStatus is case-sensitive, matching the stored representation.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusFound, StatusApproved, StatusDenied:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrBadRequest, s)
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

func (s Status) String() string { return string(s) }
