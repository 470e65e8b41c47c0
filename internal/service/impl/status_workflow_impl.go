package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"modreview/internal/domain"
	"modreview/internal/observability/metrics"
	"modreview/internal/service"

	"github.com/sethvargo/go-retry"
)

var _ service.StatusWorkflow = (*StatusWorkflowImpl)(nil)

type claimReleaser interface {
	Release(id domain.UserID)
}

type StatusWorkflowImpl struct {
	Users    statusStore
	Identity service.IdentityProvider
	Claims   claimReleaser

	backoff func() retry.Backoff
	now     func() time.Time
}

func NewStatusWorkflowImpl(users statusStore, identity service.IdentityProvider, claims claimReleaser) *StatusWorkflowImpl {
	return &StatusWorkflowImpl{
		Users:    users,
		Identity: identity,
		Claims:   claims,
		backoff:  defaultPersistBackoff,
		now:      utcNow,
	}
}

func defaultPersistBackoff() retry.Backoff {
	return retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
}

// SetStatus moves username out of Found. Approval at the identity provider
// happens before the local write, so a stored Approved always means the
// provider accepted it. If the provider call fails nothing is written.
func (w *StatusWorkflowImpl) SetStatus(ctx context.Context, actor *domain.User, username, requested string) error {
	label := "invalid"
	result := "success"
	defer func() {
		metrics.StatusTransitionsTotal.WithLabelValues(label, result).Inc()
	}()

	if !actor.Can(domain.CapApproveUser) {
		result = "unauthorized"
		return domain.ErrUnauthorized
	}
	status, err := domain.ParseStatus(requested)
	if err != nil || !status.Terminal() {
		result = "invalid"
		return fmt.Errorf("%w: status must be Approved or Denied", domain.ErrBadRequest)
	}
	label = status.String()

	target, err := w.Users.GetByUsername(ctx, username)
	if err != nil {
		result = "not_found"
		return lookupErr(err, domain.ErrNotFound)
	}
	if target.Status != domain.StatusFound {
		result = "not_actionable"
		w.Claims.Release(target.ID)
		return domain.ErrNotActionable
	}

	if status == domain.StatusApproved {
		if err := w.Identity.Approve(ctx, target.Username); err != nil {
			result = "external_failure"
			slog.Warn("external approval failed", append([]any{"user_id", target.ID, "error", err}, requestAttrs(ctx)...)...)
			return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
		}
	}

	// Past this point the provider may already hold the approval; finish the
	// write even if the caller goes away.
	persistCtx := context.WithoutCancel(ctx)
	at := w.now()
	var (
		applied  bool
		attempts int
	)
	err = retry.Do(persistCtx, w.backoff(), func(ctx context.Context) error {
		attempts++
		ok, err := w.Users.UpdateStatus(ctx, target.ID, domain.StatusFound, status, actor.Username, at)
		if err != nil {
			return retry.RetryableError(err)
		}
		applied = ok
		return nil
	})
	if err != nil {
		result = "persist_failure"
		if status == domain.StatusApproved {
			metrics.ReconciliationFailuresTotal.Inc()
			slog.Error("approved externally but local status write failed",
				append([]any{"user_id", target.ID, "username", target.Username, "reviewer", actor.Username, "error", err}, requestAttrs(ctx)...)...)
		}
		return fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	if !applied && attempts > 1 {
		// A failed attempt may still have committed.
		applied = w.writtenBy(persistCtx, target.Username, status, actor.Username)
	}
	if !applied {
		result = "not_actionable"
		w.Claims.Release(target.ID)
		slog.Warn("status changed concurrently", append([]any{"user_id", target.ID, "requested", status}, requestAttrs(ctx)...)...)
		return domain.ErrNotActionable
	}

	w.Claims.Release(target.ID)
	slog.Info("status changed", append([]any{"user_id", target.ID, "status", status, "reviewer", actor.Username}, requestAttrs(ctx)...)...)
	return nil
}

func (w *StatusWorkflowImpl) writtenBy(ctx context.Context, username string, status domain.Status, reviewer string) bool {
	u, err := w.Users.GetByUsername(ctx, username)
	if err != nil {
		slog.Warn("status re-read failed", append([]any{"username", username, "error", err}, requestAttrs(ctx)...)...)
		return false
	}
	return u.Status == status && u.Reviewer == reviewer
}
