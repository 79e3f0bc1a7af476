// Package shortcode produces candidate short codes and validates custom slugs.
// Candidates are not unique by themselves; uniqueness is enforced by the
// creation flow against the storage layer.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	// Charset is the 62-character alphanumeric alphabet codes are drawn from.
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MinLength and MaxLength bound the length of generated codes.
	MinLength = 6
	MaxLength = 8
)

// slugPattern is the only character class custom slugs may use.
var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Generator produces random candidate codes from a crypto-grade randomness
// source so that codes cannot be enumerated.
type Generator struct {
	minLength int
	maxLength int
}

// NewGenerator creates a generator with the default [MinLength, MaxLength]
// bounds.
func NewGenerator() *Generator {
	return &Generator{minLength: MinLength, maxLength: MaxLength}
}

// Generate returns one candidate code with a uniformly chosen length in
// [minLength, maxLength], each character drawn independently from Charset.
func (g *Generator) Generate() (string, error) {
	span := big.NewInt(int64(g.maxLength - g.minLength + 1))
	offset, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to pick code length: %w", err)
	}
	length := g.minLength + int(offset.Int64())

	charsetLen := big.NewInt(int64(len(Charset)))
	b := make([]byte, length)
	for i := range b {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to draw code character: %w", err)
		}
		b[i] = Charset[idx.Int64()]
	}
	return string(b), nil
}

// ValidateSlug reports whether a custom slug is acceptable:
// non-empty and matching ^[A-Za-z0-9_-]+$.
func ValidateSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}
