package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default bcrypt work factor.
const DefaultBcryptCost = 12

var ErrInvalidPassword = errors.New("invalid password")

// PasswordService hashes and verifies passwords.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a password service with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultBcryptCost}
}

// NewPasswordServiceWithCost creates a password service with a custom cost.
// Tests use a low cost to keep hashing fast.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// HashPassword hashes a password with bcrypt.
func (s *PasswordService) HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrInvalidPassword
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// VerifyPassword compares a password against its hash.
func (s *PasswordService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// IsValidPassword applies the basic password policy.
func IsValidPassword(password string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters long")
	}

	if len(password) > 128 {
		return errors.New("password must be no more than 128 characters long")
	}

	return nil
}
