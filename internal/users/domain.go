package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lumen-lms/lumen-lms/internal/shared"
)

// User is a tenant member. PasswordHash is never serialized.
type User struct {
	ID           string
	TenantID     string
	Name         string
	Email        string
	Role         shared.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
