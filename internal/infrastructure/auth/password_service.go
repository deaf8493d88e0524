package auth

import (
	"errors"

	"github.com/you/clientcore/domain"
	"golang.org/x/crypto/bcrypt"
)

// PasswordServiceImpl implements domain.PasswordService with bcrypt.
// It hashes both login passwords and OTP codes.
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a new password service. A cost outside
// bcrypt's accepted range falls back to bcrypt.DefaultCost.
func NewPasswordService(cost int) domain.PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordServiceImpl{cost: cost}
}

// Hash implements domain.PasswordService. Secrets over 72 bytes are
// rejected with domain.ErrPasswordTooLong.
func (p *PasswordServiceImpl) Hash(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements domain.PasswordService. Malformed hashes fail closed.
func (p *PasswordServiceImpl) Verify(hashed, secret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret))
	return err == nil
}
