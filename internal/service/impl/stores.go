package impl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modreview/internal/domain"
	"modreview/internal/observability/middleware"
	"modreview/internal/store"
)

type userStore interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type candidateStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.User, error)
}

type statusStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateStatus(ctx context.Context, id domain.UserID, from, to domain.Status, reviewer string, at time.Time) (bool, error)
}

type propertyStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ModifyProperties(ctx context.Context, username string, fn func(*domain.Properties) error) (*domain.User, error)
}

type tokenStore interface {
	Create(ctx context.Context, tok *domain.AuthToken) error
	GetByToken(ctx context.Context, token string) (*domain.AuthToken, error)
	Delete(ctx context.Context, token string) error
}

type otpStore interface {
	Create(ctx context.Context, otp *domain.OneTimePassword) error
	Consume(ctx context.Context, code string) (*domain.OneTimePassword, error)
	DeleteByID(ctx context.Context, id domain.OTPID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ userStore      = (*store.UserStore)(nil)
	_ candidateStore = (*store.UserStore)(nil)
	_ statusStore    = (*store.UserStore)(nil)
	_ propertyStore  = (*store.UserStore)(nil)
	_ tokenStore     = (*store.TokenStore)(nil)
	_ otpStore       = (*store.OTPStore)(nil)
)

// lookupErr classifies a store lookup failure: a missing row becomes
// notFound, anything else is internal.
func lookupErr(err, notFound error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%w: %v", domain.ErrInternal, err)
}

func requestAttrs(ctx context.Context) []any {
	return []any{
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	}
}

func utcNow() time.Time { return time.Now().UTC() }
