package service

type PasswordService interface {
	Hash(password string) (string, error)
	// Verify compares password with hash. An empty hash never matches but
	// still costs a full comparison.
	Verify(password, hash string) bool
}
