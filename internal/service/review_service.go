package service

import (
	"context"

	"modreview/internal/domain"
	"modreview/internal/dto"
)

// NextCandidate is the review target that asks for the oldest unclaimed user.
const NextCandidate = "next"

type ReviewService interface {
	// Open claims target (a username or NextCandidate) for the moderator and
	// returns it together with its external profile.
	Open(ctx context.Context, moderator *domain.User, target string) (*dto.ReviewResponse, error)
	Abandon(ctx context.Context, moderator *domain.User, username string) error
}

type StatusWorkflow interface {
	SetStatus(ctx context.Context, actor *domain.User, username, status string) error
}
