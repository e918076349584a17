// Package generator produces golden number candidates and announcement copy
// from an external text-generation capability, with local randomness as the
// always-available fallback.
package generator

import (
	"context"
	"crypto/rand"
	"math/big"

	"golden-dice-bot/internal/model"
)

// Digit alphabet for golden numbers: dice values 1 through 6.
const (
	MinDigit = '1'
	MaxDigit = '6'
)

// NumberGenerator produces a candidate golden number. Implementations may
// fail; callers always hold a local fallback.
type NumberGenerator interface {
	GenerateCandidate(ctx context.Context, model string) (string, error)
}

// Copywriter produces announcement text for a fresh golden number.
type Copywriter interface {
	AnnouncementText(ctx context.Context, model string) (string, error)
}

// Congratulator is an optional capability: congratulation copy for an exact
// match. Consumers hold a possibly-nil Congratulator instead of probing for
// method existence at runtime.
type Congratulator interface {
	CongratsText(ctx context.Context, model, digits string) (string, error)
}

// ValidCandidate reports whether s is a well-formed golden number: exactly
// GoldenDigits characters, each within the dice digit alphabet.
func ValidCandidate(s string) bool {
	if len(s) != model.GoldenDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < MinDigit || s[i] > MaxDigit {
			return false
		}
	}
	return true
}

// RandomNumber draws GoldenDigits independent uniform digits from the dice
// alphabet. The golden number is the day's secret, so the draw uses the
// crypto source.
func RandomNumber() string {
	span := big.NewInt(int64(MaxDigit - MinDigit + 1))
	buf := make([]byte, model.GoldenDigits)
	for i := range buf {
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			// crypto/rand failing means the platform entropy source is
			// broken; nothing sensible to recover to.
			panic(err)
		}
		buf[i] = byte(MinDigit + n.Int64())
	}
	return string(buf)
}
