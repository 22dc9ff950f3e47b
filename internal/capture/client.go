package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBytes = 1 << 20

// Payload is the relay request body. Absent channels are sent as null.
type Payload struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	OptIn bool    `json:"optIn"`
}

type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ContactID string `json:"contactId"`
	Action    string `json:"action"`
	Error     string `json:"error"`
}

// TransportError is any failure to get a successful relay response: the
// request failing, an unreadable body or a non-2xx status.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("relay request: %v", e.Err)
	default:
		return "relay request: " + e.Message
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type RelayClient struct {
	url  string
	http *http.Client
}

// NewRelayClient posts to url, for example https://example.com/api/create-contact.
func NewRelayClient(url string) *RelayClient {
	return &RelayClient{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *RelayClient) CreateContact(ctx context.Context, payload Payload) (*Response, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &TransportError{Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Message: "send request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = "Failed to create contact"
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}
	return &out, nil
}
