package partnerform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon-partner-intake/internal/common/errors"
	apihttp "salon-partner-intake/internal/common/http"
	"salon-partner-intake/internal/common/leads"
	"salon-partner-intake/internal/common/logger"
	"salon-partner-intake/internal/common/validation"
)

// ==========================
// Fake Lead Backend
// ==========================

type backendCall struct {
	Path          string
	Authorization string
	Body          []byte
}

type leadBackend struct {
	*httptest.Server
	mu     sync.Mutex
	calls  []backendCall
	status int
	body   string
}

func newLeadBackend(t *testing.T, status int, body string) *leadBackend {
	b := &leadBackend{status: status, body: body}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.calls = append(b.calls, backendCall{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          raw,
		})
		status, body := b.status, b.body
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *leadBackend) Calls() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

// ==========================
// Test Helpers
// ==========================

type siteFixture struct {
	backend *leadBackend
	tokens  *apihttp.MemoryTokenStore
	router  chi.Router
}

func newSite(t *testing.T, status int, body string) *siteFixture {
	t.Helper()
	backend := newLeadBackend(t, status, body)
	tokens := apihttp.NewMemoryTokenStore("stored-bearer")

	api, err := apihttp.NewClient(apihttp.Options{
		BaseURL: backend.URL + "/api",
		Policy:  apihttp.NewEndpointPolicy([]string{"/auth/login", "/leads"}, nil, "admin", "password"),
		Tokens:  tokens,
		Logger:  logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	handler, err := NewHandler(HandlerOptions{
		Leads:  leads.NewClient(api, logger.NewTestLogger(t)),
		Logger: logger.NewTestLogger(t),
		Now:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return &siteFixture{backend: backend, tokens: tokens, router: r}
}

func validFormValues() url.Values {
	return url.Values{
		"salonName":          {"Glow Studio"},
		"branchId":           {"B-12"},
		"city":               {"Pune"},
		"avgMonthlyFootfall": {"1200"},
		"clientType":         {"walk-in"},
		"contactName":        {"Asha Rao"},
		"email":              {"a@b.com"},
		"phone":              {"98765-43210"},
		"designation":        {"manager"},
		"businessType":       {"franchise"},
		"gstin":              {""},
	}
}

func (s *siteFixture) postForm(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/partner", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *siteFixture) postJSON(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/partner", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// ==========================
// Handler Tests
// ==========================

func TestNewHandler_RequiresLeadClient(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewNoOpLogger()})
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConfigInvalid, stdErr.Code)
}

func TestNewHandler_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CookieExpiry = 0
	_, err := NewHandler(HandlerOptions{
		CustomConfig: cfg,
		Leads:        &MockLeads{},
		Logger:       logger.NewNoOpLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cookie_expiry")

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConfigInvalid, stdErr.Code)
}

func TestShowForm(t *testing.T) {
	site := newSite(t, http.StatusCreated, `{"id":"lead_123"}`)

	rec := httptest.NewRecorder()
	site.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ready to Transform Your Salon?")
	assert.Contains(t, body, `href="https://salon.eagleverse.tech"`)
	assert.Contains(t, body, `name="phone"`)
	assert.NotContains(t, body, "toast")
	assert.Empty(t, site.backend.Calls())
}

func TestSubmitForm_Success(t *testing.T) {
	site := newSite(t, http.StatusCreated, `{"id":"lead_123"}`)

	rec := site.postForm(validFormValues())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the Revolution!")
	assert.Contains(t, rec.Body.String(), "Partnership Request Submitted!")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "salon-lead-Id", cookies[0].Name)
	assert.Equal(t, "lead_123", cookies[0].Value)
	assert.Equal(t, 365*24*60*60, cookies[0].MaxAge)

	calls := site.backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/api/leads", calls[0].Path)
	// the leads endpoint is public even with a bearer token in storage
	assert.Empty(t, calls[0].Authorization)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(calls[0].Body, &sent))
	assert.Equal(t, "9876543210", sent["contactPhone"])
	assert.Equal(t, float64(1200), sent["avgMonthlyFootfall"])
	assert.Equal(t, "website", sent["source"])

	check, err := validation.ValidateDocument(calls[0].Body, GetPayloadSchema())
	require.NoError(t, err)
	assert.True(t, check.Valid, check.GetErrorMessages())
}

func TestSubmitForm_ServerErrorRetainsValues(t *testing.T) {
	site := newSite(t, http.StatusInternalServerError, `{"error":{"message":"duplicate lead"}}`)

	rec := site.postForm(validFormValues())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Server responded with status 500. Please try again later.")
	assert.NotContains(t, body, "duplicate lead")
	assert.Contains(t, body, `value="Glow Studio"`)
	assert.Contains(t, body, `value="9876543210"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSubmitForm_ValidationFailureSkipsBackend(t *testing.T) {
	site := newSite(t, http.StatusCreated, `{"id":"lead_123"}`)
	values := validFormValues()
	values.Set("email", "not-an-email")

	rec := site.postForm(values)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid Email Address")
	assert.Contains(t, rec.Body.String(), HintEmail)
	assert.Empty(t, site.backend.Calls())
}

func TestSubmitForm_UnauthorizedClearsStoredToken(t *testing.T) {
	site := newSite(t, http.StatusUnauthorized, `{"error":{"message":"unauthorized"}}`)

	rec := site.postForm(validFormValues())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server responded with status 401.")

	token, err := site.tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSubmitJSON(t *testing.T) {
	site := newSite(t, http.StatusCreated, `{"id":"lead_json"}`)

	payload, _ := json.Marshal(map[string]string{
		"salonName":          "Glow Studio",
		"city":               "Pune",
		"avgMonthlyFootfall": "300",
		"clientType":         "appointment",
		"contactName":        "Asha Rao",
		"email":              "a@b.com",
		"phone":              "9876543210",
		"designation":        "owner",
		"businessType":       "other",
	})
	rec := site.postJSON(string(payload))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, "lead_json", result.LeadID)
	assert.True(t, result.ScrollToTop)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestSubmitJSON_SchemaViolations(t *testing.T) {
	site := newSite(t, http.StatusCreated, `{"id":"x"}`)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"number instead of string", `{"phone": 9876543210}`, http.StatusBadRequest},
		{"unknown field", `{"nickname": "x"}`, http.StatusBadRequest},
		{"malformed", `{"phone":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := site.postJSON(tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Empty(t, site.backend.Calls())
}

func TestSubmitJSON_ServerError(t *testing.T) {
	site := newSite(t, http.StatusServiceUnavailable, `{}`)

	payload, _ := json.Marshal(map[string]string{
		"salonName": "S", "city": "C", "avgMonthlyFootfall": "1", "clientType": "both",
		"contactName": "N", "email": "a@b.com", "phone": "9876543210",
		"designation": "owner", "businessType": "other",
	})
	rec := site.postJSON(string(payload))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, OutcomeServerError, result.Outcome)
	assert.Equal(t, 503, result.StatusCode)
	assert.Contains(t, result.Notification.Description, "503")
}

func TestSubmitForm_TransportError(t *testing.T) {
	site := newSite(t, http.StatusOK, `{}`)
	site.backend.Close()

	rec := site.postForm(validFormValues())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "There was a problem submitting your request. Please try again later.")
}
