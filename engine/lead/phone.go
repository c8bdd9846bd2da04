package lead

import "strings"

// PhoneDigits is the length of a normalized phone number.
const PhoneDigits = 10

// NormalizePhone strips every non-digit from raw and returns the last ten
// digits. Inputs with fewer than ten digits are invalid.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	digits := b.String()
	if len(digits) < PhoneDigits {
		return "", false
	}
	return digits[len(digits)-PhoneDigits:], true
}
