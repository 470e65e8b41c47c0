package domain

import "time"

type User struct {
	ID            UserID       `gorm:"primaryKey;autoIncrement" db:"id" json:"id"`
	DiscordID     int64        `gorm:"not null;default:0" db:"discord_id" json:"discord_id"`
	Username      string       `gorm:"type:text;not null;uniqueIndex:ux_users_username" db:"username" json:"username"`
	Password      string       `gorm:"type:text;not null" db:"password" json:"-"`
	Permissions   Capabilities `gorm:"type:text;not null" db:"permissions" json:"permissions"`
	Status        Status       `gorm:"type:text;not null;index:ix_users_status_created,priority:1" db:"status" json:"status"`
	StatusChanged *time.Time   `gorm:"column:status_changed" db:"status_changed" json:"status_changed"`
	Discoverer    string       `gorm:"type:text;not null" db:"discoverer" json:"discoverer"`
	Reviewer      string       `gorm:"type:text;not null" db:"reviewer" json:"reviewer"`
	Properties    Properties   `gorm:"type:text;not null" db:"properties" json:"properties"`
	Created       time.Time    `gorm:"column:created_at;not null;index:ix_users_status_created,priority:2" db:"created_at" json:"created"`
}

func (User) TableName() string { return "users" }

func (u *User) Can(c Capability) bool { return u.Permissions.Has(c) }

// CanLogin reports whether the user may hold credentials at all.
func (u *User) CanLogin() bool {
	return u.Status == StatusApproved && u.Permissions.Has(CapLogin)
}
