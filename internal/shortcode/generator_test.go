package shortcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator()

	for i := 0; i < 200; i++ {
		code, err := g.Generate()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(code), MinLength)
		assert.LessOrEqual(t, len(code), MaxLength)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(Charset, ch), "unexpected character %q in code %q", ch, code)
		}
	}
}

func TestGenerator_GenerateLengthSpread(t *testing.T) {
	g := NewGenerator()

	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		seen[len(code)] = true
	}

	// With 500 draws every length in [6,8] shows up.
	for l := MinLength; l <= MaxLength; l++ {
		assert.True(t, seen[l], "length %d never generated", l)
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"promo2025", "my-link", "a", "x_y-Z9"}
	for _, slug := range valid {
		assert.True(t, ValidateSlug(slug), "slug %q should be valid", slug)
	}

	invalid := []string{"", "bad slug!", "emoji🙂", "semi;colon", "slash/x", "dot.com"}
	for _, slug := range invalid {
		assert.False(t, ValidateSlug(slug), "slug %q should be invalid", slug)
	}
}
