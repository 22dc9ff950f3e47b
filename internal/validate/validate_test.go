package validate

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"a@b.c", true},
		{"jane@x.com", true},
		{"first.last+tag@sub.example.org", true},
		{"a@b", false},
		{"a b@c.com", false},
		{"@b.c", false},
		{"a@@b.c", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Email(tt.input); got != tt.want {
			t.Errorf("Email(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"6 digits", strings.Repeat("1", 6), false},
		{"7 digits", strings.Repeat("1", 7), true},
		{"15 digits", strings.Repeat("1", 15), true},
		{"16 digits", strings.Repeat("1", 16), false},
		{"formatted", "(555) 123-4567", true},
		{"letters only", "call me", false},
	}
	for _, tt := range tests {
		if got := Phone(tt.input); got != tt.want {
			t.Errorf("Phone(%s: %q) = %v, want %v", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestPhoneDigits(t *testing.T) {
	if got := PhoneDigits("+1 (555) 123-4567"); got != "15551234567" {
		t.Errorf("PhoneDigits = %q, want %q", got, "15551234567")
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		input     string
		wantFirst string
		wantLast  string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Jane", "Jane", ""},
		{"  Mary   Ann  Smith ", "Mary", "Ann Smith"},
		{"", "", ""},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.input)
		if first != tt.wantFirst || last != tt.wantLast {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.input, first, last, tt.wantFirst, tt.wantLast)
		}
	}
}

