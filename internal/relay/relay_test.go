package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/myindsound/promo/internal/crm"
)

// fakeCRM stands in for the upstream contacts API and remembers what it saw.
type fakeCRM struct {
	mu       sync.Mutex
	contacts map[string]crm.Contact // keyed by email or phone
	nextID   int

	creates, searches, updates int
	lastCreate, lastUpdate     crm.Contact
	lastQuery, lastUpdateID    string

	createStatus int
	createBody   string
	searchBody   string
	updateStatus int
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{contacts: make(map[string]crm.Contact)}
}

func (f *fakeCRM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/contacts/":
		f.creates++
		var c crm.Contact
		_ = json.NewDecoder(r.Body).Decode(&c)
		f.lastCreate = c
		if f.createStatus != 0 {
			w.WriteHeader(f.createStatus)
			_, _ = w.Write([]byte(f.createBody))
			return
		}
		key := c.Email + c.Phone
		if existing, ok := f.contacts[key]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":400,"message":"Contact already exists: ` + existing.ID + `"}`))
			return
		}
		f.nextID++
		c.ID = "c-" + strconv.Itoa(f.nextID)
		f.contacts[key] = c
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"contact": c})

	case r.Method == http.MethodGet && r.URL.Path == "/contacts/":
		f.searches++
		f.lastQuery = r.URL.Query().Get("query")
		if f.searchBody != "" {
			_, _ = w.Write([]byte(f.searchBody))
			return
		}
		var found []crm.Contact
		for key, c := range f.contacts {
			if strings.Contains(key, f.lastQuery) {
				found = append(found, c)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"contacts": found})

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/contacts/"):
		f.updates++
		f.lastUpdateID = strings.TrimPrefix(r.URL.Path, "/contacts/")
		var c crm.Contact
		_ = json.NewDecoder(r.Body).Decode(&c)
		f.lastUpdate = c
		if f.updateStatus != 0 {
			w.WriteHeader(f.updateStatus)
			_, _ = w.Write([]byte(`{"message":"update rejected"}`))
			return
		}
		c.ID = f.lastUpdateID
		_ = json.NewEncoder(w).Encode(map[string]any{"succeded": true, "contact": c})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRelay(t *testing.T, upstream *fakeCRM) *Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	client := crm.New(crm.Config{BaseURL: srv.URL, Token: "pit-test", LocationID: "loc-1"})
	return NewHandler(client, "loc-1")
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/create-contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148")
	rec := httptest.NewRecorder()
	h.CreateContact(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return body
}

func TestCreateContact_RejectsNonPost(t *testing.T) {
	upstream := newFakeCRM()
	h := newRelay(t, upstream)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/api/create-contact", strings.NewReader(`{"name":"Jane Doe","email":"jane@x.com","optIn":true}`))
		rec := httptest.NewRecorder()
		h.CreateContact(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", method, rec.Code)
		}
		if rec.Header().Get("Allow") != http.MethodPost {
			t.Errorf("%s: expected Allow: POST, got %q", method, rec.Header().Get("Allow"))
		}
	}
	if upstream.creates != 0 {
		t.Errorf("expected no upstream calls, got %d creates", upstream.creates)
	}
}

func TestCreateContact_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"missing name", `{"email":"jane@x.com","optIn":true}`, "Name is required"},
		{"blank name", `{"name":"   ","email":"jane@x.com"}`, "Name is required"},
		{"no channels", `{"name":"Jane Doe","optIn":true}`, "Either email or phone is required"},
		{"null channels", `{"name":"Jane Doe","email":null,"phone":null}`, "Either email or phone is required"},
		{"malformed body", `{"name":`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newFakeCRM()
			h := newRelay(t, upstream)

			rec := post(h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decode(t, rec)
			if body["success"] != false {
				t.Errorf("expected success=false, got %v", body["success"])
			}
			if body["error"] != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, body["error"])
			}
			if upstream.creates != 0 {
				t.Errorf("expected no upstream calls, got %d", upstream.creates)
			}
		})
	}
}

func TestCreateContact_CreatesThenUpdatesOnResubmit(t *testing.T) {
	upstream := newFakeCRM()
	h := newRelay(t, upstream)

	rec := post(h, `{"name":"Jane Doe","email":"jane@x.com","optIn":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["action"] != "created" || body["success"] != true {
		t.Errorf("unexpected first response: %v", body)
	}
	if body["contactId"] != "c-1" {
		t.Errorf("expected contactId c-1, got %v", body["contactId"])
	}
	if body["message"] != "Contact created successfully" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	if upstream.lastCreate.FirstName != "Jane" || upstream.lastCreate.LastName != "Doe" {
		t.Errorf("unexpected name split: %+v", upstream.lastCreate)
	}
	if upstream.lastCreate.LocationID != "loc-1" || upstream.lastCreate.Source != ContactSource {
		t.Errorf("unexpected contact metadata: %+v", upstream.lastCreate)
	}

	rec = post(h, `{"name":"Jane Doe","email":"jane@x.com","optIn":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on resubmit, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decode(t, rec)
	if body["action"] != "updated" {
		t.Errorf("expected action updated, got %v", body["action"])
	}
	if body["contactId"] != "c-1" {
		t.Errorf("expected contactId c-1, got %v", body["contactId"])
	}
	if upstream.searches != 1 || upstream.updates != 1 {
		t.Errorf("expected exactly one search and one update, got %d and %d", upstream.searches, upstream.updates)
	}
	if upstream.lastQuery != "jane@x.com" {
		t.Errorf("expected search by email, got %q", upstream.lastQuery)
	}
	if upstream.lastUpdateID != "c-1" {
		t.Errorf("expected update of c-1, got %q", upstream.lastUpdateID)
	}
	if upstream.lastUpdate.FirstName != "Jane" || upstream.lastUpdate.Email != "jane@x.com" {
		t.Errorf("expected full payload on update, got %+v", upstream.lastUpdate)
	}
}

func TestCreateContact_DuplicateWithoutMatchReturnsOriginalFailure(t *testing.T) {
	upstream := newFakeCRM()
	upstream.createStatus = http.StatusBadRequest
	upstream.createBody = `{"statusCode":400,"message":"Contact already exists"}`
	upstream.searchBody = `{"contacts":[]}`
	h := newRelay(t, upstream)

	rec := post(h, `{"name":"Jane Doe","phone":"+15551234567","optIn":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected upstream status 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != false || body["error"] != "Failed to create or update contact" {
		t.Errorf("unexpected failure envelope: %v", body)
	}
	details, ok := body["details"].(map[string]any)
	if !ok || details["message"] != "Contact already exists" {
		t.Errorf("expected upstream payload in details, got %v", body["details"])
	}
	if upstream.searches != 1 {
		t.Errorf("expected exactly one search, got %d", upstream.searches)
	}
	if upstream.updates != 0 {
		t.Errorf("expected no update, got %d", upstream.updates)
	}
	if upstream.lastQuery != "+15551234567" {
		t.Errorf("expected search by phone, got %q", upstream.lastQuery)
	}
}

func TestCreateContact_UpdateFailureForwardsUpstreamStatus(t *testing.T) {
	upstream := newFakeCRM()
	upstream.createStatus = http.StatusBadRequest
	upstream.createBody = `{"message":"Contact already exists"}`
	upstream.searchBody = `{"contacts":[{"id":"c-7"}]}`
	upstream.updateStatus = http.StatusUnprocessableEntity
	h := newRelay(t, upstream)

	rec := post(h, `{"name":"Jane Doe","email":"jane@x.com","optIn":true}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decode(t, rec)
	details, _ := body["details"].(map[string]any)
	if details["message"] != "update rejected" {
		t.Errorf("expected update payload in details, got %v", body["details"])
	}
}

func TestCreateContact_NonDuplicateFailureSkipsLookup(t *testing.T) {
	upstream := newFakeCRM()
	upstream.createStatus = http.StatusUnauthorized
	upstream.createBody = `{"message":"Invalid JWT"}`
	h := newRelay(t, upstream)

	rec := post(h, `{"name":"Jane","email":"jane@x.com","optIn":true}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if upstream.searches != 0 {
		t.Errorf("expected no search, got %d", upstream.searches)
	}
}

func TestCreateContact_TransportFailureIs500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	h := NewHandler(crm.New(crm.Config{BaseURL: url, Token: "t", LocationID: "loc-1"}), "loc-1")
	rec := post(h, `{"name":"Jane","email":"jane@x.com","optIn":true}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != "Failed to create contact" {
		t.Errorf("unexpected error: %v", body["error"])
	}
	if details, _ := body["details"].(string); details == "" {
		t.Error("expected error details string")
	}
}

type stubCountry struct{ ip string }

func (s *stubCountry) Country(ip string) string {
	s.ip = ip
	return "US"
}

func TestCreateContact_UsesCountryLookup(t *testing.T) {
	upstream := newFakeCRM()
	h := newRelay(t, upstream)
	geo := &stubCountry{}
	h.SetCountryLookup(geo)

	req := httptest.NewRequest(http.MethodPost, "/api/create-contact", strings.NewReader(`{"name":"Jane","email":"jane@x.com","optIn":true}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := httptest.NewRecorder()
	h.CreateContact(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if geo.ip != "203.0.113.5" {
		t.Errorf("expected lookup of forwarded IP, got %q", geo.ip)
	}
}

func TestDeviceClass(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"", "unknown"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", "mobile"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", "desktop"},
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "bot"},
	}
	for _, tt := range tests {
		if got := deviceClass(tt.ua); got != tt.want {
			t.Errorf("deviceClass(%q) = %q, want %q", tt.ua, got, tt.want)
		}
	}
}
