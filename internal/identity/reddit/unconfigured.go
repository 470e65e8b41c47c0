package reddit

import (
	"context"

	"modreview/internal/dto"
	"modreview/internal/service"
)

// Unconfigured stands in when no API credentials are available. Every call
// fails with ErrNotConfigured, which callers surface as an external service
// error.
type Unconfigured struct{}

var _ service.IdentityProvider = Unconfigured{}

func (Unconfigured) Profile(context.Context, string) (*dto.ExternalProfile, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Approve(context.Context, string) error { return ErrNotConfigured }

func (Unconfigured) SendMessage(context.Context, string, string) error { return ErrNotConfigured }
