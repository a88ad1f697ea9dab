package partnerform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/logger"
	"salon-partner-intake/internal/common/metrics"
)

// Form is one partner request form. It starts in StateEditing and moves
// to StateSubmitted after the first accepted submission, after which the
// field values are discarded and every operation is rejected.
//
// Submit does not hold the lock across the network call, so edits are
// accepted while a request is outstanding and a second Submit sends a
// second request.
type Form struct {
	config     *Config
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	leads      LeadCreator
	notifier   Notifier
	cookies    LeadCookieWriter
	recorder   Recorder
	now        func() time.Time

	mu     sync.Mutex
	state  State
	values FormState
}

// NewForm returns an editing form. deps.Leads is required; a nil config
// falls back to DefaultConfig.
func NewForm(deps ServiceDependencies, config *Config) (*Form, error) {
	if deps.Leads == nil {
		return nil, errors.NewConfigInvalidError(fmt.Errorf("partner-form requires a lead client"))
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Form{
		config:     config,
		logger:     log,
		errHandler: errors.NewErrorHandler(log),
		leads:      deps.Leads,
		notifier:   deps.Notifier,
		cookies:    deps.Cookies,
		recorder:   deps.Recorder,
		now:        now,
		state:      StateEditing,
	}, nil
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Values returns a copy of the current field values.
func (f *Form) Values() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Update replaces one field. Phone input is reduced to its digits and an
// edit that would leave more than 10 digits is dropped. It returns false
// when nothing changed because the edit was rejected.
func (f *Form) Update(field Field, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateEditing {
		return false
	}
	target := f.values.ref(field)
	if target == nil {
		return false
	}
	if field == FieldPhone {
		value = StripNonDigits(value)
		if len(value) > PhoneDigits {
			return false
		}
	}
	*target = value
	return true
}

// Hints returns the inline validation hints for the current values.
func (f *Form) Hints() map[Field]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateEditing {
		return map[Field]string{}
	}
	return computeHints(f.values)
}

// Submit validates the current values and, if they pass, sends them to the
// lead endpoint. Every failure is reported through the returned Result and
// the notifier; the error return is only ErrFormSubmitted.
func (f *Form) Submit(ctx context.Context) (*Result, error) {
	start := f.now()

	f.mu.Lock()
	if f.state != StateEditing {
		f.mu.Unlock()
		return nil, errors.ErrFormSubmitted
	}
	values := f.values
	f.mu.Unlock()

	log := f.logger.WithFields(map[string]interface{}{
		"attemptId": uuid.NewString(),
	})

	phone := StripNonDigits(values.Phone)
	if len(phone) != PhoneDigits {
		return f.reject(ctx, start, OutcomeInvalidPhone, errors.NewInvalidPhoneError(len(phone)), Notification{
			Title:       "Invalid Phone Number",
			Description: HintPhone,
			Variant:     VariantDestructive,
		}), nil
	}

	if !IsValidEmail(values.Email) {
		return f.reject(ctx, start, OutcomeInvalidEmail, errors.NewInvalidEmailError(values.Email), Notification{
			Title:       "Invalid Email Address",
			Description: HintEmail,
			Variant:     VariantDestructive,
		}), nil
	}

	if field, err := checkRequired(values); err != nil {
		rule, _ := err.Metadata["rule"].(string)
		return f.reject(ctx, start, OutcomeMissingField, err, Notification{
			Title:       "Missing Required Field",
			Description: missingFieldDescription(field, rule),
			Variant:     VariantDestructive,
		}), nil
	}

	payload := buildPayload(values, phone, f.config.Source)
	log.Info("Submitting partner request", map[string]interface{}{
		"salonName":    payload.SalonName,
		"city":         payload.City,
		"businessType": payload.BusinessType,
	})

	lead, err := f.leads.CreateLead(ctx, payload)
	if err != nil {
		stdErr := f.errHandler.Handle("partner-form.submit", err)
		if stdErr.Code == errors.ErrCodeServerError {
			status := errors.StatusFrom(stdErr)
			result := f.finish(ctx, start, &Result{
				Outcome:    OutcomeServerError,
				StatusCode: status,
				Err:        stdErr,
				Notification: Notification{
					Title:       "Submission Failed",
					Description: fmt.Sprintf("Server responded with status %d. Please try again later.", status),
					Variant:     VariantDestructive,
				},
			})
			return result, nil
		}
		return f.finish(ctx, start, &Result{
			Outcome: OutcomeTransportError,
			Err:     stdErr,
			Notification: Notification{
				Title:       "Submission Failed",
				Description: "There was a problem submitting your request. Please try again later.",
				Variant:     VariantDestructive,
			},
		}), nil
	}

	f.writeLeadCookie(ctx, log, lead.LeadID)

	f.mu.Lock()
	f.state = StateSubmitted
	f.values = FormState{}
	f.mu.Unlock()

	log.Info("Partner request submitted", map[string]interface{}{
		"leadId": lead.LeadID,
		"status": lead.StatusCode,
	})

	return f.finish(ctx, start, &Result{
		Outcome:     OutcomeSuccess,
		LeadID:      lead.LeadID,
		StatusCode:  lead.StatusCode,
		ScrollToTop: true,
		Notification: Notification{
			Title:       "Partnership Request Submitted!",
			Description: "We'll contact you within 12 hours to discuss your revenue transformation.",
			Variant:     VariantDefault,
		},
	}), nil
}

func (f *Form) reject(ctx context.Context, start time.Time, outcome Outcome, err *errors.StandardError, n Notification) *Result {
	f.errHandler.Handle("partner-form.validate", err)
	return f.finish(ctx, start, &Result{
		Outcome:      outcome,
		Err:          err,
		Notification: n,
	})
}

func (f *Form) finish(ctx context.Context, start time.Time, result *Result) *Result {
	metrics.FormSubmissionsTotal.WithLabelValues(string(result.Outcome)).Inc()
	if f.notifier != nil {
		f.notifier.Notify(result.Notification)
	}
	if f.recorder != nil {
		f.recorder.RecordSubmission(ctx, string(result.Outcome), f.now().Sub(start))
	}
	return result
}

// writeLeadCookie failures are logged only; the lead already exists.
func (f *Form) writeLeadCookie(ctx context.Context, log logger.Logger, leadID string) {
	if f.cookies == nil {
		return
	}
	if leadID == "" {
		log.Warn("No lead id returned, lead cookie not written", nil)
		return
	}
	cookie := f.config.LeadCookie(leadID, f.now())
	if err := f.cookies.WriteCookie(ctx, cookie); err != nil {
		log.Error("Failed to write lead cookie", map[string]interface{}{
			"cookie": cookie.Name,
			"error":  err,
		})
	}
}
