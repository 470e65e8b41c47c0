package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"modreview/internal/domain"
	"modreview/internal/dto"
	"modreview/internal/observability/metrics"
	"modreview/internal/service"
)

var _ service.ReviewService = (*ReviewServiceImpl)(nil)

type ReviewServiceImpl struct {
	Users       userStore
	Coordinator *ReviewCoordinator
	Identity    service.IdentityProvider
}

func NewReviewServiceImpl(users userStore, coord *ReviewCoordinator, identity service.IdentityProvider) *ReviewServiceImpl {
	return &ReviewServiceImpl{Users: users, Coordinator: coord, Identity: identity}
}

func (s *ReviewServiceImpl) Open(ctx context.Context, moderator *domain.User, target string) (*dto.ReviewResponse, error) {
	if !moderator.Can(domain.CapApproveUser) {
		return nil, domain.ErrUnauthorized
	}

	mode := "named"
	if target == service.NextCandidate {
		mode = "next"
	}
	result := "success"
	defer func() {
		metrics.ReviewAssignmentsTotal.WithLabelValues(mode, result).Inc()
	}()

	var (
		user  *domain.User
		fresh bool
		err   error
	)
	if mode == "next" {
		user, err = s.Coordinator.Next(ctx, moderator)
		fresh = err == nil
	} else {
		user, fresh, err = s.Coordinator.Claim(ctx, target, moderator)
	}
	if err != nil {
		result = "not_found"
		if !errors.Is(err, domain.ErrNotFound) {
			result = "error"
		}
		return nil, err
	}

	profile, err := s.Identity.Profile(ctx, user.Username)
	if err != nil {
		result = "profile_failure"
		if fresh {
			s.Coordinator.Release(user.ID)
		}
		slog.Warn("profile fetch failed", append([]any{"user_id", user.ID, "error", err}, requestAttrs(ctx)...)...)
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}

	return &dto.ReviewResponse{User: user, Profile: profile}, nil
}

// Abandon releases the moderator's claim on username without changing its
// status.
func (s *ReviewServiceImpl) Abandon(ctx context.Context, moderator *domain.User, username string) error {
	if !moderator.Can(domain.CapApproveUser) {
		return domain.ErrUnauthorized
	}
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return lookupErr(err, domain.ErrNotFound)
	}
	if !s.Coordinator.ReleaseOwned(user.ID, moderator.ID) {
		if holder, held := s.Coordinator.Holder(user.ID); held {
			return fmt.Errorf("%w: %q is claimed by moderator %d", domain.ErrNotActionable, username, holder)
		}
		return fmt.Errorf("%w: no claim held on %q", domain.ErrNotFound, username)
	}
	slog.Info("review abandoned", append([]any{"user_id", user.ID, "moderator_id", moderator.ID}, requestAttrs(ctx)...)...)
	return nil
}
