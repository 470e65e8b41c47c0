package store

import (
	"context"
	"time"

	"modreview/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OTPStore struct{ db *gorm.DB }

func (s *Store) OTPs() *OTPStore { return &OTPStore{db: s.DB} }

func (o *OTPStore) Create(ctx context.Context, otp *domain.OneTimePassword) error {
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	if otp.Created.IsZero() {
		otp.Created = time.Now().UTC()
	}
	return translate(o.db.WithContext(ctx).Create(otp).Error)
}

// Consume removes the OTP with the given code and returns it. Only one caller
// can observe a given row: the delete is keyed on the row id and a concurrent
// consumer that loses the race sees zero affected rows.
func (o *OTPStore) Consume(ctx context.Context, code string) (*domain.OneTimePassword, error) {
	db := o.db.WithContext(ctx)

	var otp domain.OneTimePassword
	if err := db.First(&otp, "password = ?", code).Error; err != nil {
		return nil, translate(err)
	}

	res := db.Where("id = ?", otp.ID).Delete(&domain.OneTimePassword{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrRecordNotFound
	}
	return &otp, nil
}

func (o *OTPStore) DeleteByID(ctx context.Context, id domain.OTPID) error {
	return o.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.OneTimePassword{}).Error
}

// DeleteExpired removes every OTP whose expiry is at or before now.
func (o *OTPStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := o.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.OneTimePassword{})
	return res.RowsAffected, res.Error
}
