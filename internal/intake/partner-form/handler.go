package partnerform

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"salon-partner-intake/internal/common/config"
	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/logger"
	"salon-partner-intake/internal/common/validation"
)

const maxBodyBytes = 64 << 10

//go:embed templates/*.html
var templateFS embed.FS

type benefit struct {
	Title       string
	Description string
}

var benefits = []benefit{
	{"Upto 150% Revenue Boost Potential", "Leverage AI-driven insights to elevate your salon's earning capacity"},
	{"30-Day Client Retention Goal", "Clients get automatic notifications for follow-ups, helping you build consistent return visits."},
	{"Implementation whenever you say", "We'll implement the system in 10 minutes on your preferred date, no pressure, just your timeline."},
}

type pageData struct {
	Values        FormState
	Hints         map[string]string
	Notice        *Notification
	ScrollToTop   bool
	DashboardURL  string
	ClientTypes   []string
	Designations  []string
	BusinessTypes []string
	Benefits      []benefit
}

// Handler serves the partner form. Every request works on its own Form,
// so nothing is shared between visitors.
type Handler struct {
	config   *Config
	logger   logger.Logger
	leads    LeadCreator
	recorder Recorder
	pages    *template.Template
	now      func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Leads        LeadCreator
	Recorder     Recorder
	Logger       logger.Logger
	Now          func() time.Time
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	formConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := formConfig.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Errorf("partner-form: %w", err))
	}
	if opts.Leads == nil {
		return nil, errors.NewConfigInvalidError(fmt.Errorf("partner-form requires a lead client"))
	}

	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse partner-form templates: %w", err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:   formConfig,
		logger:   loggerInstance.WithFields(map[string]interface{}{"component": "partner-form"}),
		leads:    opts.Leads,
		recorder: opts.Recorder,
		pages:    pages,
		now:      opts.Now,
	}, nil
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showForm)
	r.Post("/partner", h.submitForm)
	r.Post("/api/partner", h.submitJSON)
}

// NewForm returns a fresh editing form wired to the handler's dependencies.
func (h *Handler) NewForm(cookies LeadCookieWriter, notifier Notifier) (*Form, error) {
	return NewForm(ServiceDependencies{
		Logger:   h.logger,
		Leads:    h.leads,
		Notifier: notifier,
		Cookies:  cookies,
		Recorder: h.recorder,
		Now:      h.now,
	}, h.config)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "form", h.page(FormState{}, nil, nil))
}

func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	form, err := h.NewForm(responseCookies{w: w}, nil)
	if err != nil {
		h.logger.Error("Failed to create form", map[string]interface{}{"error": err})
		http.Error(w, "form unavailable", http.StatusInternalServerError)
		return
	}
	for _, field := range Fields {
		form.Update(field, r.PostFormValue(string(field)))
	}
	before := form.Values()
	hints := form.Hints()

	result, err := form.Submit(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if result.Succeeded() {
		data := h.page(FormState{}, nil, &result.Notification)
		data.ScrollToTop = result.ScrollToTop
		h.render(w, http.StatusOK, "submitted", data)
		return
	}
	h.render(w, statusFor(result.Outcome), "form", h.page(before, hints, &result.Notification))
}

func (h *Handler) submitJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}

	check, err := validation.ValidateDocument(body, GetInputSchema())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	if !check.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "request body does not match schema",
			"fields": check.Errors,
		})
		return
	}

	var input map[string]string
	if err := json.Unmarshal(body, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}

	form, err := h.NewForm(responseCookies{w: w}, nil)
	if err != nil {
		h.logger.Error("Failed to create form", map[string]interface{}{"error": err})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "form unavailable"})
		return
	}
	for name, value := range input {
		if field, ok := ParseField(name); ok {
			form.Update(field, value)
		}
	}

	result, err := form.Submit(r.Context())
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, statusFor(result.Outcome), result)
}

func (h *Handler) page(values FormState, hints map[Field]string, notice *Notification) pageData {
	flat := make(map[string]string, len(hints))
	for f, msg := range hints {
		flat[string(f)] = msg
	}
	return pageData{
		Values:        values,
		Hints:         flat,
		Notice:        notice,
		DashboardURL:  h.config.DashboardURL,
		ClientTypes:   ClientTypes,
		Designations:  Designations,
		BusinessTypes: BusinessTypes,
		Benefits:      benefits,
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("Failed to render page", map[string]interface{}{
			"template": name,
			"error":    err,
		})
	}
}

func statusFor(outcome Outcome) int {
	switch outcome {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeServerError, OutcomeTransportError:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// responseCookies sets the lead cookie on the visitor's response.
type responseCookies struct {
	w http.ResponseWriter
}

func (c responseCookies) WriteCookie(_ context.Context, cookie *http.Cookie) error {
	http.SetCookie(c.w, cookie)
	return nil
}
