package crm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// duplicateMarker is matched against the upstream message when the response
// carries no structured duplicate metadata. The message text is not a
// documented contract.
const duplicateMarker = "already exists"

// APIError is a non-2xx response from the CRM.
type APIError struct {
	StatusCode int
	Message    string
	Meta       ErrorMeta
	Body       json.RawMessage
}

type ErrorMeta struct {
	ContactID     string `json:"contactId"`
	ContactName   string `json:"contactName"`
	MatchingField string `json:"matchingField"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("crm returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("crm returned status %d: %s", e.StatusCode, e.Message)
}

type errorPayload struct {
	Message json.RawMessage `json:"message"`
	Meta    ErrorMeta       `json:"meta"`
}

func newAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	if !json.Valid(data) {
		text := strings.TrimSpace(string(data))
		apiErr.Message = text
		apiErr.Body, _ = json.Marshal(map[string]string{"message": text})
		return apiErr
	}
	apiErr.Body = json.RawMessage(data)

	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apiErr
	}
	apiErr.Meta = payload.Meta
	apiErr.Message = decodeMessage(payload.Message)
	return apiErr
}

// The CRM sends message either as a string or as a list of validation strings.
func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// IsDuplicate reports whether err is the CRM rejecting a create because the
// contact already exists. Structured metadata is checked before the message.
func IsDuplicate(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	if apiErr.Meta.ContactID != "" {
		return true
	}
	return strings.Contains(apiErr.Message, duplicateMarker)
}
