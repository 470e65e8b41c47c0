package store

import (
	"context"

	"gorm.io/gorm"
)

// Store hands out the per-table stores over one gorm handle. Stores taken
// from the Store passed to a WithTx callback share that transaction.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// WithTx runs fn in a transaction; a non-nil error from fn rolls it back and
// is returned as is.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
