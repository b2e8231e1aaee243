// Package codes generates the one-time numeric codes used for email
// verification and password reset.
package codes

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Numeric returns a uniformly random digit string of exactly width digits.
// The leading digit is never zero, so the printed width matches the stored
// width without padding. Randomness comes from crypto/rand only.
func Numeric(width int) (string, error) {
	if width < 1 || width > 18 {
		return "", errors.New("invalid code width")
	}

	// Draw from [10^(width-1), 10^width).
	low := big.NewInt(1)
	for i := 1; i < width; i++ {
		low.Mul(low, big.NewInt(10))
	}
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	n.Add(n, low)

	return n.String(), nil
}
