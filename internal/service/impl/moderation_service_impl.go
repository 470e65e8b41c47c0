package impl

import (
	"context"
	"errors"
	"log/slog"

	"modreview/internal/domain"
	"modreview/internal/service"
)

var _ service.ModerationService = (*ModerationServiceImpl)(nil)

type ModerationServiceImpl struct {
	Users propertyStore
}

func NewModerationServiceImpl(users propertyStore) *ModerationServiceImpl {
	return &ModerationServiceImpl{Users: users}
}

func (m *ModerationServiceImpl) GetUser(ctx context.Context, actor *domain.User, username string) (*domain.User, error) {
	if !actor.Can(domain.CapModerator) {
		return nil, domain.ErrUnauthorized
	}
	u, err := m.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, lookupErr(err, domain.ErrNotFound)
	}
	return u, nil
}

// UpdateProperty sets one editable profile field. Only avatar and description
// are accepted.
func (m *ModerationServiceImpl) UpdateProperty(ctx context.Context, actor *domain.User, username, key, value string) (*domain.User, error) {
	if !actor.Can(domain.CapModerator) {
		return nil, domain.ErrUnauthorized
	}
	pk, err := domain.ParsePropertyKey(key)
	if err != nil {
		return nil, err
	}
	u, err := m.Users.ModifyProperties(ctx, username, func(props *domain.Properties) error {
		return props.Set(pk, value)
	})
	if err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			return nil, err
		}
		return nil, lookupErr(err, domain.ErrNotFound)
	}
	slog.Info("properties updated", append([]any{"user_id", u.ID, "key", key, "moderator", actor.Username}, requestAttrs(ctx)...)...)
	return u, nil
}
