package lead

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"ten digits", "5551234567", "5551234567", true},
		{"formatted", "(555) 123-4567", "5551234567", true},
		{"country code", "+1 555.123.4567", "5551234567", true},
		{"long prefix", "0015551234567", "5551234567", true},
		{"spreadsheet float", "5551234567.0", "5512345670", true},
		{"seven digits", "123-4567", "", false},
		{"five digits", "12345", "", false},
		{"empty", "", "", false},
		{"letters only", "call me", "", false},
		{"non ascii digits", "５５５１２３４５６７", "", false},
	}
	for _, tt := range tests {
		t.Run("Should handle "+tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("Should return nothing or exactly ten digits", func(t *testing.T) {
		for n := 0; n <= 15; n++ {
			raw := strings.Repeat("7", n)
			got, ok := NormalizePhone(raw)
			switch {
			case n < PhoneDigits:
				assert.False(t, ok)
				assert.Empty(t, got)
			case n == PhoneDigits:
				assert.True(t, ok)
				assert.Equal(t, raw, got)
			default:
				assert.True(t, ok)
				assert.Equal(t, raw[n-PhoneDigits:], got)
			}
		}
	})
}
