package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://services.leadconnectorhq.com"
	APIVersion     = "2021-07-28"
)

type Config struct {
	BaseURL    string
	Token      string
	LocationID string
	Timeout    time.Duration
}

// Contact is the contact record accepted and returned by the CRM.
type Contact struct {
	ID         string   `json:"id,omitempty"`
	LocationID string   `json:"locationId,omitempty"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Source     string   `json:"source,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Result carries the raw upstream response so callers can forward it verbatim.
type Result struct {
	ContactID string
	Raw       json.RawMessage
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
		Base:   versionTransport{base: http.DefaultTransport},
	}

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

func (c *Client) LocationID() string {
	return c.config.LocationID
}

type versionTransport struct {
	base http.RoundTripper
}

func (t versionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Version", APIVersion)
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}

type contactEnvelope struct {
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

func (c *Client) CreateContact(ctx context.Context, contact Contact) (*Result, error) {
	raw, err := c.do(ctx, http.MethodPost, "/contacts/", contact)
	if err != nil {
		return nil, err
	}

	var env contactEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode create contact response: %w", err)
	}
	return &Result{ContactID: env.Contact.ID, Raw: raw}, nil
}

// UpdateContact replaces the contact's fields with the given payload. No
// field-level merge is performed.
func (c *Client) UpdateContact(ctx context.Context, id string, contact Contact) (*Result, error) {
	raw, err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(id), contact)
	if err != nil {
		return nil, err
	}
	return &Result{ContactID: id, Raw: raw}, nil
}

type searchResponse struct {
	Contacts []Contact `json:"contacts"`
}

// SearchContacts queries contacts in the configured location by free text,
// usually an email address or phone number.
func (c *Client) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	params := url.Values{}
	params.Set("locationId", c.config.LocationID)
	params.Set("query", query)

	raw, err := c.do(ctx, http.MethodGet, "/contacts/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search contacts response: %w", err)
	}
	return resp.Contacts, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal crm request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create crm request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send crm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read crm response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("crm returned invalid JSON (status %d)", resp.StatusCode)
	}
	return data, nil
}
