package impl

import (
	"golang.org/x/crypto/bcrypt"
)

type PasswordServiceImpl struct {
	cost  int
	dummy []byte
}

// NewPasswordServiceBcrypt hashes with the given bcrypt cost; values outside
// bcrypt's accepted range fall back to bcrypt.DefaultCost.
func NewPasswordServiceBcrypt(cost int) *PasswordServiceImpl {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("modreview-dummy-password"), cost)
	if err != nil {
		panic(err)
	}
	return &PasswordServiceImpl{cost: cost, dummy: dummy}
}

func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (p *PasswordServiceImpl) Verify(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
