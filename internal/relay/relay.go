package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"github.com/myindsound/promo/internal/crm"
	"github.com/myindsound/promo/internal/httputil"
	"github.com/myindsound/promo/internal/validate"
)

const (
	ContactSource = "Music Player - Pray"
	ContactTag    = "Pray Player Form"

	maxBodyBytes = 64 * 1024
)

// ContactStore is the subset of the CRM client used by the relay.
type ContactStore interface {
	CreateContact(ctx context.Context, contact crm.Contact) (*crm.Result, error)
	SearchContacts(ctx context.Context, query string) ([]crm.Contact, error)
	UpdateContact(ctx context.Context, id string, contact crm.Contact) (*crm.Result, error)
}

type CountryLookup interface {
	Country(ip string) string
}

type Handler struct {
	contacts   ContactStore
	locationID string
	geo        CountryLookup
}

func NewHandler(contacts ContactStore, locationID string) *Handler {
	return &Handler{contacts: contacts, locationID: locationID}
}

func (h *Handler) SetCountryLookup(geo CountryLookup) {
	h.geo = geo
}

type createContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	OptIn bool   `json:"optIn"`
}

type createContactResponse struct {
	Success   bool            `json:"success"`
	Contact   json.RawMessage `json:"contact"`
	Message   string          `json:"message"`
	ContactID string          `json:"contactId,omitempty"`
	Action    string          `json:"action"`
}

// CreateContact upserts the submitted lead into the CRM. A create rejected as
// a duplicate is resolved by one lookup and one update of the first match.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger := slog.With("invocation_id", uuid.NewString())

	var req createContactRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.WriteFailure(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)

	if name == "" {
		httputil.WriteFailure(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	if email == "" && phone == "" {
		httputil.WriteFailure(w, http.StatusBadRequest, "Either email or phone is required", nil)
		return
	}

	first, last := validate.SplitName(name)
	contact := crm.Contact{
		LocationID: h.locationID,
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Phone:      phone,
		Source:     ContactSource,
		Tags:       []string{ContactTag},
	}

	logger.Info("creating crm contact",
		"name", name,
		"email", orNA(email),
		"phone", orNA(phone),
		"opt_in", req.OptIn,
		"device", deviceClass(r.UserAgent()),
		"country", h.country(r),
	)

	ctx := r.Context()
	created, err := h.contacts.CreateContact(ctx, contact)
	if err == nil {
		logger.Info("crm contact created", "contact_id", created.ContactID)
		writeSuccess(w, created, "Contact created successfully", "created")
		return
	}

	if crm.IsDuplicate(err) {
		logger.Info("crm contact exists, searching to update")
		if h.updateExisting(ctx, w, logger, contact, firstNonEmpty(email, phone)) {
			return
		}
	}

	writeUpstreamFailure(w, logger, err)
}

// updateExisting reports whether a response was written. When the lookup
// fails or finds nothing the caller answers with the original create failure.
func (h *Handler) updateExisting(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, contact crm.Contact, query string) bool {
	matches, err := h.contacts.SearchContacts(ctx, query)
	if err != nil {
		logger.Warn("crm contact search failed", "error", err)
		return false
	}
	if len(matches) == 0 {
		logger.Warn("crm reported duplicate but search found no match")
		return false
	}

	existing := matches[0]
	logger.Info("found existing crm contact", "contact_id", existing.ID)

	updated, err := h.contacts.UpdateContact(ctx, existing.ID, contact)
	if err != nil {
		writeUpstreamFailure(w, logger, err)
		return true
	}

	logger.Info("crm contact updated", "contact_id", existing.ID)
	updated.ContactID = existing.ID
	writeSuccess(w, updated, "Contact updated successfully", "updated")
	return true
}

func writeSuccess(w http.ResponseWriter, result *crm.Result, message, action string) {
	httputil.WriteJSON(w, http.StatusOK, createContactResponse{
		Success:   true,
		Contact:   result.Raw,
		Message:   message,
		ContactID: result.ContactID,
		Action:    action,
	})
}

func writeUpstreamFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *crm.APIError
	if errors.As(err, &apiErr) {
		logger.Error("crm api error", "status", apiErr.StatusCode, "body", string(apiErr.Body))
		httputil.WriteFailure(w, apiErr.StatusCode, "Failed to create or update contact", apiErr.Body)
		return
	}

	logger.Error("failed to create crm contact", "error", err)
	httputil.WriteFailure(w, http.StatusInternalServerError, "Failed to create contact", err.Error())
}

func (h *Handler) country(r *http.Request) string {
	if h.geo == nil {
		return ""
	}
	return h.geo.Country(httputil.ClientIP(r))
}

func deviceClass(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	switch {
	case ua.Bot():
		return "bot"
	case ua.Mobile():
		return "mobile"
	default:
		return "desktop"
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
