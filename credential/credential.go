// Package credential hashes and verifies user passwords.
// Stored hashes are bcrypt strings ("$2a$<cost>$<22-char salt><31-char digest>"):
// the random 16-byte salt and the cost factor travel inside the stored value,
// so two hashes of the same password differ and both verify.
package credential

import (
	"errors"
	"fmt"
	"strings"

	// `bcrypt` is an adaptive hash: the cost factor can be raised as hardware gets faster.
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts; longer input is rejected
// instead of being silently truncated.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by HashPassword for input over MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher for cost, clamped to bcrypt's allowed range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured bcrypt cost.
func (h *Hasher) Cost() int { return h.cost }

// HashPassword returns a salted bcrypt hash of plaintext.
func (h *Hasher) HashPassword(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether plaintext matches storedHash.
// It never errors: a malformed, empty or non-bcrypt stored value (such as the
// legacy "salt:sha256" format) simply does not verify.
func VerifyPassword(plaintext, storedHash string) bool {
	if !isBcrypt(storedHash) {
		return false
	}
	// bcrypt only reads the first 72 bytes; anything longer could never have
	// been hashed by HashPassword.
	if len(plaintext) > MaxPasswordBytes {
		return false
	}
	// CompareHashAndPassword compares digests in constant time.
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// NeedsRehash reports whether storedHash was produced at a different cost than
// the Hasher's, so a successful login can store an upgraded hash.
func (h *Hasher) NeedsRehash(storedHash string) bool {
	cost, err := bcrypt.Cost([]byte(storedHash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

func isBcrypt(s string) bool {
	if len(s) != 60 {
		return false
	}
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
