package capture

import (
	"strings"

	"github.com/myindsound/promo/internal/validate"
)

const DefaultCountryCode = "+1"

const (
	msgNameRequired    = "Please enter your name"
	msgChannelRequired = "Please provide either an email address or phone number"
	msgInvalidEmail    = "Please enter a valid email address"
	msgInvalidPhone    = "Please enter a valid phone number"
	msgConsentRequired = "Please agree to receive updates from Myind Sound"
)

// Submission is the capture form as entered. Phone excludes the country code.
type Submission struct {
	Name        string
	Email       string
	Phone       string
	CountryCode string
	OptIn       bool
}

// ValidationError carries the single message shown under the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Trimmed returns s with surrounding whitespace removed from every text field.
func (s Submission) Trimmed() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.CountryCode = strings.TrimSpace(s.CountryCode)
	return s
}

// Validate reports the first failing rule in form order: name, a contact
// channel, email format, phone length, then consent.
func Validate(s Submission) error {
	s = s.Trimmed()
	switch {
	case s.Name == "":
		return &ValidationError{Field: "name", Message: msgNameRequired}
	case s.Email == "" && s.Phone == "":
		return &ValidationError{Field: "email", Message: msgChannelRequired}
	case s.Email != "" && !validate.Email(s.Email):
		return &ValidationError{Field: "email", Message: msgInvalidEmail}
	case s.Phone != "" && !validate.Phone(s.Phone):
		return &ValidationError{Field: "phone", Message: msgInvalidPhone}
	case !s.OptIn:
		return &ValidationError{Field: "optIn", Message: msgConsentRequired}
	}
	return nil
}

// NormalizePhone prefixes the entered phone with its country code. An empty
// phone stays empty.
func NormalizePhone(countryCode, phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	return strings.TrimSpace(countryCode) + phone
}

// Payload builds the relay request body for an accepted submission.
func (s Submission) Payload() Payload {
	s = s.Trimmed()
	code := s.CountryCode
	if code == "" {
		code = DefaultCountryCode
	}
	return Payload{
		Name:  s.Name,
		Email: nullable(s.Email),
		Phone: nullable(NormalizePhone(code, s.Phone)),
		OptIn: s.OptIn,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
