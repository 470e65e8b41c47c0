package store

import (
	"context"
	"time"

	"modreview/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	if usr.Created.IsZero() {
		usr.Created = time.Now().UTC()
	}
	if usr.Status == "" {
		usr.Status = domain.StatusFound
	}
	if usr.Permissions == nil {
		usr.Permissions = domain.Capabilities{}
	}
	return translate(u.db.WithContext(ctx).Create(usr).Error)
}

func (u *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListByStatus returns users in review order: oldest first, ties broken by id.
func (u *UserStore) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.User, error) {
	var users []*domain.User
	err := u.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateStatus moves a user from one status to another. It reports false when
// the row was no longer in the expected status.
func (u *UserStore) UpdateStatus(ctx context.Context, id domain.UserID, from, to domain.Status, reviewer string, at time.Time) (bool, error) {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":         to,
			"reviewer":       reviewer,
			"status_changed": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (u *UserStore) UpdateProperties(ctx context.Context, id domain.UserID, props domain.Properties) error {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("properties", props)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ModifyProperties locks the user's row, applies fn to its properties and
// writes them back in one transaction. An error from fn aborts the write and
// is returned unchanged.
func (u *UserStore) ModifyProperties(ctx context.Context, username string, fn func(*domain.Properties) error) (*domain.User, error) {
	var out domain.User
	err := New(u.db).WithTx(ctx, func(tx *Store) error {
		err := tx.DB.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&out, "username = ?", username).Error
		if err != nil {
			return translate(err)
		}
		if err := fn(&out.Properties); err != nil {
			return err
		}
		return tx.Users().UpdateProperties(ctx, out.ID, out.Properties)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *UserStore) SetPassword(ctx context.Context, id domain.UserID, hash string) error {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (u *UserStore) SetPermissions(ctx context.Context, id domain.UserID, caps domain.Capabilities) error {
	res := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("permissions", caps)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
