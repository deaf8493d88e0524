package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultOTPLength is used when a non-positive length is requested
const DefaultOTPLength = 6

var ten = big.NewInt(10)

// GenerateOTP returns a numeric one-time code of the given length. Each
// digit is drawn independently from crypto/rand.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}

	digits := make([]byte, length)
	for i := range digits {
		num, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}
