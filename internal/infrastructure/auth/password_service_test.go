package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/clientcore/domain"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordServiceImpl_HashAndVerify(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	tests := []struct {
		name   string
		secret string
	}{
		{"plain password", "correct horse battery staple"},
		{"otp code", "042917"},
		{"unicode", "pässwörd-🔑"},
		{"empty secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := svc.Hash(tt.secret)
			require.NoError(t, err)
			assert.NotEqual(t, tt.secret, hashed, "hash must not equal the plaintext")
			assert.True(t, strings.HasPrefix(hashed, "$2"), "expected a bcrypt hash, got %q", hashed)

			assert.True(t, svc.Verify(hashed, tt.secret))
			assert.False(t, svc.Verify(hashed, tt.secret+"x"))
		})
	}
}

func TestPasswordServiceImpl_SaltedHashes(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	first, err := svc.Hash("same-password")
	require.NoError(t, err)
	second, err := svc.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each hash must carry its own salt")
	assert.True(t, svc.Verify(first, "same-password"))
	assert.True(t, svc.Verify(second, "same-password"))
}

func TestPasswordServiceImpl_ByteLimit(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	atLimit := strings.Repeat("é", 36)
	hashed, err := svc.Hash(atLimit)
	require.NoError(t, err)
	assert.True(t, svc.Verify(hashed, atLimit))

	_, err = svc.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, domain.ErrPasswordTooLong)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestPasswordServiceImpl_VerifyFailsClosed(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	tests := []struct {
		name   string
		hashed string
	}{
		{"empty hash", ""},
		{"not a bcrypt hash", "plaintext-password"},
		{"truncated bcrypt hash", "$2a$04$abc"},
		{"unsupported version", "$9z$04$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, svc.Verify(tt.hashed, "plaintext-password"))
			})
		})
	}
}

func TestNewPasswordService_CostFallback(t *testing.T) {
	svc := NewPasswordService(0).(*PasswordServiceImpl)
	assert.Equal(t, bcrypt.DefaultCost, svc.cost)

	svc = NewPasswordService(bcrypt.MaxCost + 1).(*PasswordServiceImpl)
	assert.Equal(t, bcrypt.DefaultCost, svc.cost)

	svc = NewPasswordService(bcrypt.MinCost).(*PasswordServiceImpl)
	assert.Equal(t, bcrypt.MinCost, svc.cost)
}
