package partnerform

import (
	"context"
	"net/http"
	"time"

	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/leads"
	"salon-partner-intake/internal/common/logger"
)

// Field names one form input. The value doubles as the HTML input name
// and the JSON key accepted by the JSON endpoint.
type Field string

const (
	FieldSalonName          Field = "salonName"
	FieldBranchID           Field = "branchId"
	FieldCity               Field = "city"
	FieldAvgMonthlyFootfall Field = "avgMonthlyFootfall"
	FieldClientType         Field = "clientType"
	FieldContactName        Field = "contactName"
	FieldEmail              Field = "email"
	FieldPhone              Field = "phone"
	FieldDesignation        Field = "designation"
	FieldBusinessType       Field = "businessType"
	FieldGSTIN              Field = "gstin"
	FieldPreferredStartDate Field = "preferredStartDate"
)

// Fields lists every field in display order.
var Fields = []Field{
	FieldSalonName, FieldBranchID, FieldCity, FieldAvgMonthlyFootfall, FieldClientType,
	FieldContactName, FieldEmail, FieldPhone, FieldDesignation,
	FieldBusinessType, FieldGSTIN, FieldPreferredStartDate,
}

var fieldLabels = map[Field]string{
	FieldSalonName:          "Salon Name",
	FieldBranchID:           "Branch ID",
	FieldCity:               "City",
	FieldAvgMonthlyFootfall: "Average Monthly Footfall",
	FieldClientType:         "Client Type",
	FieldContactName:        "Contact Person Name",
	FieldEmail:              "Email Address",
	FieldPhone:              "Phone Number",
	FieldDesignation:        "Designation",
	FieldBusinessType:       "Business Type",
	FieldGSTIN:              "GSTIN",
	FieldPreferredStartDate: "Preferred Start Date",
}

func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

func ParseField(name string) (Field, bool) {
	f := Field(name)
	_, ok := fieldLabels[f]
	return f, ok
}

// Allowed select values.
var (
	ClientTypes   = []string{"walk-in", "appointment", "both"}
	Designations  = []string{"owner", "manager"}
	BusinessTypes = []string{"partnership", "independent", "franchise", "other"}
)

// FormState holds what the user has typed. Every value is kept as text;
// footfall is only converted when the payload is built.
type FormState struct {
	SalonName          string `json:"salonName" validate:"required"`
	BranchID           string `json:"branchId"`
	City               string `json:"city" validate:"required"`
	AvgMonthlyFootfall string `json:"avgMonthlyFootfall" validate:"required"`
	ClientType         string `json:"clientType" validate:"required,oneof=walk-in appointment both"`
	ContactName        string `json:"contactName" validate:"required"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Designation        string `json:"designation" validate:"required,oneof=owner manager"`
	BusinessType       string `json:"businessType" validate:"required,oneof=partnership independent franchise other"`
	GSTIN              string `json:"gstin"`
	PreferredStartDate string `json:"preferredStartDate"`
}

func (s *FormState) ref(f Field) *string {
	switch f {
	case FieldSalonName:
		return &s.SalonName
	case FieldBranchID:
		return &s.BranchID
	case FieldCity:
		return &s.City
	case FieldAvgMonthlyFootfall:
		return &s.AvgMonthlyFootfall
	case FieldClientType:
		return &s.ClientType
	case FieldContactName:
		return &s.ContactName
	case FieldEmail:
		return &s.Email
	case FieldPhone:
		return &s.Phone
	case FieldDesignation:
		return &s.Designation
	case FieldBusinessType:
		return &s.BusinessType
	case FieldGSTIN:
		return &s.GSTIN
	case FieldPreferredStartDate:
		return &s.PreferredStartDate
	}
	return nil
}

// Get returns the current value of f, or "" for an unknown field.
func (s *FormState) Get(f Field) string {
	if p := s.ref(f); p != nil {
		return *p
	}
	return ""
}

type State int

const (
	StateEditing State = iota
	StateSubmitted
)

func (s State) String() string {
	if s == StateSubmitted {
		return "submitted"
	}
	return "editing"
}

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient toast shown to the user.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeInvalidPhone   Outcome = "invalid_phone"
	OutcomeInvalidEmail   Outcome = "invalid_email"
	OutcomeMissingField   Outcome = "missing_field"
	OutcomeServerError    Outcome = "server_error"
	OutcomeTransportError Outcome = "transport_error"
)

// Result describes one submit attempt. Err is nil only on success.
type Result struct {
	Outcome      Outcome               `json:"outcome"`
	Notification Notification          `json:"notification"`
	LeadID       string                `json:"leadId,omitempty"`
	StatusCode   int                   `json:"statusCode,omitempty"`
	ScrollToTop  bool                  `json:"scrollToTop"`
	Err          *errors.StandardError `json:"-"`
}

func (r *Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// LeadCreator sends the submission payload to the lead endpoint.
type LeadCreator interface {
	CreateLead(ctx context.Context, lead *leads.LeadRequest) (*leads.LeadResult, error)
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LeadCookieWriter persists the lead cookie after a successful submission.
type LeadCookieWriter interface {
	WriteCookie(ctx context.Context, cookie *http.Cookie) error
}

// Recorder receives one call per finished submit attempt.
type Recorder interface {
	RecordSubmission(ctx context.Context, outcome string, duration time.Duration)
}

type ServiceDependencies struct {
	Logger   logger.Logger
	Leads    LeadCreator
	Notifier Notifier
	Cookies  LeadCookieWriter
	Recorder Recorder
	Now      func() time.Time
}
