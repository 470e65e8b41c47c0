package domain

import "time"

// AuthToken is an opaque bearer credential. Rows are never updated; revocation
// deletes them.
type AuthToken struct {
	ID      TokenID   `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	UserID  UserID    `gorm:"not null;index" db:"user_id" json:"user"`
	Token   string    `gorm:"type:text;not null;uniqueIndex:ux_auth_tokens_token" db:"token" json:"token"`
	Created time.Time `gorm:"column:created_at;not null" db:"created_at" json:"created"`
}

func (AuthToken) TableName() string { return "auth_tokens" }

// OneTimePassword is redeemable once; redemption deletes the row.
type OneTimePassword struct {
	ID         OTPID     `gorm:"type:uuid;primaryKey" db:"id"`
	UserID     UserID    `gorm:"not null;index" db:"user_id"`
	Password   string    `gorm:"type:text;not null;uniqueIndex:ux_otps_password" db:"password"`
	Expiration time.Time `gorm:"column:expires_at;not null;index" db:"expires_at"`
	Created    time.Time `gorm:"column:created_at;not null" db:"created_at"`
}

func (OneTimePassword) TableName() string { return "otps" }

func (o *OneTimePassword) Expired(now time.Time) bool {
	return !now.Before(o.Expiration)
}
