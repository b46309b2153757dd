package whatsapp

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for sender ids that are not phone numbers.
var ErrInvalidPhone = errors.New("whatsapp: invalid phone number")

// NormalizePhone converts a sender id such as "15550001111" or
// "+1 (555) 000-1111" to E.164 form ("+15550001111").
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	b.WriteByte('+')
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')', r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}

	digits := b.Len() - 1
	if digits < 8 || digits > 15 || strings.HasPrefix(b.String(), "+0") {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}
