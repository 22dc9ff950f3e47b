package capture

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := Submission{Name: "Jane Doe", Email: "jane@x.com", OptIn: true}

	tests := []struct {
		name      string
		sub       Submission
		wantField string
		wantMsg   string
	}{
		{"valid email", valid, "", ""},
		{"valid phone", Submission{Name: "Jane", Phone: "555 123 4567", OptIn: true}, "", ""},
		{"blank name", Submission{Name: "   ", Email: "jane@x.com", OptIn: true}, "name", msgNameRequired},
		{"no channel", Submission{Name: "Jane", OptIn: true}, "email", msgChannelRequired},
		{"bad email", Submission{Name: "Jane", Email: "jane@x", OptIn: true}, "email", msgInvalidEmail},
		{"short phone", Submission{Name: "Jane", Phone: "12345", OptIn: true}, "phone", msgInvalidPhone},
		{"long phone", Submission{Name: "Jane", Phone: "1234567890123456", OptIn: true}, "phone", msgInvalidPhone},
		{"no consent", Submission{Name: "Jane", Email: "jane@x.com"}, "optIn", msgConsentRequired},
		{"name checked first", Submission{Email: "bad"}, "name", msgNameRequired},
		{"email checked before phone", Submission{Name: "J", Email: "bad", Phone: "1"}, "email", msgInvalidEmail},
		{"format checked before consent", Submission{Name: "J", Phone: "1"}, "phone", msgInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sub)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField || verr.Message != tt.wantMsg {
				t.Errorf("got %s %q, want %s %q", verr.Field, verr.Message, tt.wantField, tt.wantMsg)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		code, phone, want string
	}{
		{"+1", "5551234567", "+15551234567"},
		{"+44", " 7700 900123 ", "+447700 900123"},
		{"+1", "", ""},
		{"+1", "   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.code, tt.phone); got != tt.want {
			t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.code, tt.phone, got, tt.want)
		}
	}
}

func TestSubmissionPayload(t *testing.T) {
	p := Submission{Name: " Jane ", Phone: "5551234567", OptIn: true}.Payload()
	if p.Name != "Jane" {
		t.Errorf("name = %q", p.Name)
	}
	if p.Email != nil {
		t.Errorf("expected nil email, got %q", *p.Email)
	}
	if p.Phone == nil || *p.Phone != "+15551234567" {
		t.Errorf("expected default country code, got %v", p.Phone)
	}

	p = Submission{Name: "Jane", Email: "jane@x.com", CountryCode: "+44"}.Payload()
	if p.Phone != nil {
		t.Errorf("expected nil phone, got %q", *p.Phone)
	}
	if p.Email == nil || *p.Email != "jane@x.com" {
		t.Errorf("unexpected email %v", p.Email)
	}
}
