// Package phone normalizes dialable numbers to E.164.
package phone

import (
	"errors"
	"strings"
)

var ErrInvalidNumber = errors.New("phone: no digits in number")

// Normalize converts raw user input to E.164 form.
//
// Policy (kept stable for history compatibility):
//   - strip every non-digit character
//   - input that already started with '+' keeps its digits as-is behind '+'
//   - exactly 10 digits are treated as US national and get '+1'
//   - exactly 11 digits starting with '1' get '+'
//   - anything else gets '+' prepended unchanged
//
// An input with no digits at all is rejected.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	hadPlus := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrInvalidNumber
	}

	switch {
	case hadPlus:
		return "+" + digits, nil
	case len(digits) == 10:
		return "+1" + digits, nil
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	default:
		return "+" + digits, nil
	}
}
