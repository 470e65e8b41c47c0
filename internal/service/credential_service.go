package service

import (
	"context"

	"modreview/internal/domain"
	"modreview/internal/dto"
)

type CredentialService interface {
	IssueToken(ctx context.Context, user *domain.User) (*domain.AuthToken, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Revoke(ctx context.Context, token string) error
	Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*domain.AuthToken, error)
	CreateOTP(ctx context.Context, username string) error
	RedeemOTP(ctx context.Context, code string) (*domain.AuthToken, error)
}
