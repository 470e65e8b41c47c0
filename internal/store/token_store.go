package store

import (
	"context"
	"time"

	"modreview/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenStore struct{ db *gorm.DB }

func (s *Store) Tokens() *TokenStore { return &TokenStore{db: s.DB} }

func (t *TokenStore) Create(ctx context.Context, tok *domain.AuthToken) error {
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	if tok.Created.IsZero() {
		tok.Created = time.Now().UTC()
	}
	return translate(t.db.WithContext(ctx).Create(tok).Error)
}

func (t *TokenStore) GetByToken(ctx context.Context, token string) (*domain.AuthToken, error) {
	var out domain.AuthToken
	if err := t.db.WithContext(ctx).First(&out, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (t *TokenStore) Delete(ctx context.Context, token string) error {
	res := t.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.AuthToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *TokenStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	res := t.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.AuthToken{})
	return res.RowsAffected, res.Error
}
