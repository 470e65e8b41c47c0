package service

import (
	"context"

	"modreview/internal/domain"
)

type ModerationService interface {
	GetUser(ctx context.Context, actor *domain.User, username string) (*domain.User, error)
	UpdateProperty(ctx context.Context, actor *domain.User, username, key, value string) (*domain.User, error)
}
