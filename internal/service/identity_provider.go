package service

import (
	"context"

	"modreview/internal/dto"
)

// IdentityProvider is the external account system users are reviewed
// against. Every call is a network round trip.
type IdentityProvider interface {
	Profile(ctx context.Context, username string) (*dto.ExternalProfile, error)
	// Approve grants the account access. Repeating it for the same username
	// has no further effect.
	Approve(ctx context.Context, username string) error
	SendMessage(ctx context.Context, username, text string) error
}
