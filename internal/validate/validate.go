package validate

import (
	"regexp"
	"strings"
	"unicode"
)

// Contact field limits shared by the capture form and the relay.
const (
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email reports whether s has a basic local@domain.tld shape.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// PhoneDigits strips everything but ASCII digits.
func PhoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone reports whether s carries between MinPhoneDigits and MaxPhoneDigits digits.
func Phone(s string) bool {
	n := len(PhoneDigits(s))
	return n >= MinPhoneDigits && n <= MaxPhoneDigits
}

// SplitName splits a full name on whitespace: the first token is the first
// name, the remaining tokens joined with single spaces are the last name.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

