package partnerform

import (
	"context"
	stderrors "errors"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/leads"
	"salon-partner-intake/internal/common/logger"
	"salon-partner-intake/internal/common/validation"
)

// ==========================
// Mocks
// ==========================

type MockLeads struct {
	mock.Mock
}

func (m *MockLeads) CreateLead(ctx context.Context, lead *leads.LeadRequest) (*leads.LeadResult, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leads.LeadResult), args.Error(1)
}

type recordedNotices struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordedNotices) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

type cookieJar struct {
	cookies []*http.Cookie
	err     error
}

func (c *cookieJar) WriteCookie(_ context.Context, cookie *http.Cookie) error {
	if c.err != nil {
		return c.err
	}
	c.cookies = append(c.cookies, cookie)
	return nil
}

type outcomeRecorder struct {
	outcomes []string
}

func (o *outcomeRecorder) RecordSubmission(_ context.Context, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

// ==========================
// Test Helpers
// ==========================

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type formFixture struct {
	form     *Form
	leads    *MockLeads
	notices  *recordedNotices
	cookies  *cookieJar
	recorder *outcomeRecorder
}

func newFixture(t *testing.T) *formFixture {
	t.Helper()
	fx := &formFixture{
		leads:    &MockLeads{},
		notices:  &recordedNotices{},
		cookies:  &cookieJar{},
		recorder: &outcomeRecorder{},
	}
	form, err := NewForm(ServiceDependencies{
		Logger:   logger.NewTestLogger(t),
		Leads:    fx.leads,
		Notifier: fx.notices,
		Cookies:  fx.cookies,
		Recorder: fx.recorder,
		Now:      func() time.Time { return fixedNow },
	}, DefaultConfig())
	require.NoError(t, err)
	fx.form = form
	return fx
}

func fillValid(t *testing.T, f *Form) {
	t.Helper()
	values := map[Field]string{
		FieldSalonName:          "Glow Studio",
		FieldBranchID:           "B-12",
		FieldCity:               "Pune",
		FieldAvgMonthlyFootfall: "1200",
		FieldClientType:         "both",
		FieldContactName:        "Asha Rao",
		FieldEmail:              "a@b.com",
		FieldPhone:              "9876543210",
		FieldDesignation:        "owner",
		FieldBusinessType:       "independent",
		FieldGSTIN:              "22AAAAA0000A1Z5",
		FieldPreferredStartDate: "2026-04-01",
	}
	for field, value := range values {
		require.True(t, f.Update(field, value), field)
	}
}

// ==========================
// Construction Tests
// ==========================

func TestNewForm_RequiresLeadClient(t *testing.T) {
	form, err := NewForm(ServiceDependencies{Logger: logger.NewTestLogger(t)}, nil)
	assert.Nil(t, form)
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConfigInvalid, stdErr.Code)
}

func TestNewForm_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = ""

	_, err := NewForm(ServiceDependencies{Leads: &MockLeads{}}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}

func TestNewForm_NilConfigUsesDefaults(t *testing.T) {
	form, err := NewForm(ServiceDependencies{Leads: &MockLeads{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, form.State())
}

// ==========================
// Field Update Tests
// ==========================

func TestUpdate_PhoneKeepsDigitsOnly(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		input    string
		accepted bool
		stored   string
	}{
		{"98765 43210", true, "9876543210"},
		{"+91-98765", true, "9198765"},
		{"abc", true, ""},
		{"12345678901", false, ""},
		{"(987) 654-3210 ext 9", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.True(t, fx.form.Update(FieldPhone, ""))
			assert.Equal(t, tt.accepted, fx.form.Update(FieldPhone, tt.input))
			assert.Equal(t, tt.stored, fx.form.Values().Phone)
		})
	}
}

func TestUpdate_PhoneNeverExceedsTenDigits(t *testing.T) {
	fx := newFixture(t)
	for _, ch := range "9a8-7 6(5)4.3_2x1/0+9 8 7" {
		fx.form.Update(FieldPhone, fx.form.Values().Phone+string(ch))
		assert.LessOrEqual(t, len(StripNonDigits(fx.form.Values().Phone)), PhoneDigits)
	}
	assert.Equal(t, "9876543210", fx.form.Values().Phone)
}

func TestUpdate_RejectedEditLeavesPreviousValue(t *testing.T) {
	fx := newFixture(t)
	require.True(t, fx.form.Update(FieldPhone, "9876543210"))
	assert.False(t, fx.form.Update(FieldPhone, "98765432101"))
	assert.Equal(t, "9876543210", fx.form.Values().Phone)
}

func TestUpdate_ReplacesExactlyOneField(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)
	before := fx.form.Values()

	require.True(t, fx.form.Update(FieldCity, "Mumbai"))
	after := fx.form.Values()

	assert.Equal(t, "Mumbai", after.City)
	after.City = before.City
	assert.Equal(t, before, after)
}

func TestUpdate_UnknownField(t *testing.T) {
	fx := newFixture(t)
	assert.False(t, fx.form.Update(Field("nickname"), "x"))
}

// ==========================
// Hint Tests
// ==========================

func TestHints(t *testing.T) {
	fx := newFixture(t)
	assert.Empty(t, fx.form.Hints())

	fx.form.Update(FieldEmail, "not-an-email")
	fx.form.Update(FieldPhone, "98765")
	hints := fx.form.Hints()
	assert.Equal(t, HintEmail, hints[FieldEmail])
	assert.Equal(t, HintPhone, hints[FieldPhone])

	fx.form.Update(FieldEmail, "a@b.com")
	fx.form.Update(FieldPhone, "9876543210")
	assert.Empty(t, fx.form.Hints())
	assert.Empty(t, fx.notices.items)
}

// ==========================
// Submit Validation Tests
// ==========================

func TestSubmit_InvalidPhoneNeverCallsServer(t *testing.T) {
	for _, phone := range []string{"", "98765", "987654321"} {
		t.Run(phone, func(t *testing.T) {
			fx := newFixture(t)
			fillValid(t, fx.form)
			fx.form.Update(FieldPhone, phone)
			fx.form.Update(FieldEmail, "broken")

			result, err := fx.form.Submit(context.Background())
			require.NoError(t, err)

			assert.Equal(t, OutcomeInvalidPhone, result.Outcome)
			assert.Equal(t, errors.ErrCodeInvalidPhone, result.Err.Code)
			assert.Equal(t, Notification{
				Title:       "Invalid Phone Number",
				Description: "Phone number must be exactly 10 digits.",
				Variant:     VariantDestructive,
			}, result.Notification)
			assert.Equal(t, []Notification{result.Notification}, fx.notices.items)
			assert.Equal(t, StateEditing, fx.form.State())
			fx.leads.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_InvalidEmailNeverCallsServer(t *testing.T) {
	for _, email := range []string{"", "a@b", "a b@c.com", "@b.com", "a@.com", "a@b.", "a@@b.com", "a@b.com "} {
		t.Run(email, func(t *testing.T) {
			fx := newFixture(t)
			fillValid(t, fx.form)
			fx.form.Update(FieldEmail, email)

			result, err := fx.form.Submit(context.Background())
			require.NoError(t, err)

			assert.Equal(t, OutcomeInvalidEmail, result.Outcome)
			assert.Equal(t, "Invalid Email Address", result.Notification.Title)
			assert.Equal(t, "Please enter a valid email address.", result.Notification.Description)
			assert.Equal(t, VariantDestructive, result.Notification.Variant)
			assert.Equal(t, StateEditing, fx.form.State())
			fx.leads.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last+tag@mail.example.co", "x@y.z", "a@b.c.d"}
	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}
	invalid := []string{"a@b", "a b@c.com", "a@b\tc.com", "plain"}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}

func TestSubmit_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name        string
		field       Field
		value       string
		description string
	}{
		{"blank salon name", FieldSalonName, "", "Please fill in Salon Name."},
		{"blank city", FieldCity, "", "Please fill in City."},
		{"blank footfall", FieldAvgMonthlyFootfall, "", "Please fill in Average Monthly Footfall."},
		{"unknown client type", FieldClientType, "vip", "Please select a valid Client Type."},
		{"unknown designation", FieldDesignation, "director", "Please select a valid Designation."},
		{"blank business type", FieldBusinessType, "", "Please fill in Business Type."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fillValid(t, fx.form)
			fx.form.Update(tt.field, tt.value)

			result, err := fx.form.Submit(context.Background())
			require.NoError(t, err)

			assert.Equal(t, OutcomeMissingField, result.Outcome)
			assert.Equal(t, "Missing Required Field", result.Notification.Title)
			assert.Equal(t, tt.description, result.Notification.Description)
			assert.Equal(t, string(tt.field), result.Err.Metadata["field"])
			fx.leads.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_OptionalFieldsMayBeBlank(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)
	fx.form.Update(FieldBranchID, "")
	fx.form.Update(FieldGSTIN, "")
	fx.form.Update(FieldPreferredStartDate, "")

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(&leads.LeadResult{StatusCode: 201, LeadID: "lead_9"}, nil).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

// ==========================
// Submit Outcome Tests
// ==========================

func TestSubmit_SendsOnePayload(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)

	var sent *leads.LeadRequest
	fx.leads.On("CreateLead", mock.Anything, mock.AnythingOfType("*leads.LeadRequest")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*leads.LeadRequest) }).
		Return(&leads.LeadResult{StatusCode: 201, LeadID: "lead_123"}, nil).Once()

	_, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	fx.leads.AssertNumberOfCalls(t, "CreateLead", 1)

	require.NotNil(t, sent)
	assert.Equal(t, &leads.LeadRequest{
		Source:             "website",
		SalonName:          "Glow Studio",
		BranchNumber:       "B-12",
		City:               "Pune",
		AvgMonthlyFootfall: 1200,
		ClientType:         "both",
		ContactName:        "Asha Rao",
		ContactEmail:       "a@b.com",
		ContactPhone:       "9876543210",
		ContactDesignation: "owner",
		BusinessType:       "independent",
		GSTIN:              "22AAAAA0000A1Z5",
	}, sent)
}

func TestSubmit_SuccessMovesToSubmitted(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(&leads.LeadResult{StatusCode: 201, LeadID: "lead_123"}, nil).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Nil(t, result.Err)
	assert.Equal(t, "lead_123", result.LeadID)
	assert.True(t, result.ScrollToTop)
	assert.Equal(t, Notification{
		Title:       "Partnership Request Submitted!",
		Description: "We'll contact you within 12 hours to discuss your revenue transformation.",
		Variant:     VariantDefault,
	}, result.Notification)

	require.Len(t, fx.cookies.cookies, 1)
	cookie := fx.cookies.cookies[0]
	assert.Equal(t, "salon-lead-Id", cookie.Name)
	assert.Equal(t, "lead_123", cookie.Value)
	assert.Equal(t, ".eagleverse.tech", cookie.Domain)
	assert.Equal(t, fixedNow.Add(365*24*time.Hour), cookie.Expires)

	assert.Equal(t, StateSubmitted, fx.form.State())
	assert.Equal(t, FormState{}, fx.form.Values())
	assert.Equal(t, []string{"success"}, fx.recorder.outcomes)

	_, err = fx.form.Submit(context.Background())
	assert.True(t, stderrors.Is(err, errors.ErrFormSubmitted))
	assert.False(t, fx.form.Update(FieldCity, "Delhi"))
	assert.Empty(t, fx.form.Hints())
	fx.leads.AssertNumberOfCalls(t, "CreateLead", 1)
}

func TestSubmit_ServerErrorKeepsValues(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)
	before := fx.form.Values()

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(nil, errors.NewServerError(500, "db down")).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeServerError, result.Outcome)
	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, "Submission Failed", result.Notification.Title)
	assert.Equal(t, "Server responded with status 500. Please try again later.", result.Notification.Description)
	assert.Equal(t, VariantDestructive, result.Notification.Variant)
	assert.NotContains(t, result.Notification.Description, "db down")

	assert.Equal(t, StateEditing, fx.form.State())
	assert.Equal(t, before, fx.form.Values())
	assert.Empty(t, fx.cookies.cookies)
}

func TestSubmit_TransportErrorUsesGenericMessage(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(nil, errors.NewTransportError(stderrors.New("connection refused"))).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeTransportError, result.Outcome)
	assert.Equal(t, "There was a problem submitting your request. Please try again later.", result.Notification.Description)
	assert.Equal(t, StateEditing, fx.form.State())
}

func TestSubmit_FailureThenRetrySucceeds(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(nil, errors.NewServerError(503, "")).Once()
	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(&leads.LeadResult{StatusCode: 200, LeadID: "lead_2"}, nil).Once()

	first, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Succeeded())

	second, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Succeeded())
	assert.Equal(t, []string{"server_error", "success"}, fx.recorder.outcomes)
}

func TestSubmit_CookieFailureStillSucceeds(t *testing.T) {
	fx := newFixture(t)
	fx.cookies.err = stderrors.New("jar full")
	fillValid(t, fx.form)

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(&leads.LeadResult{StatusCode: 201, LeadID: "lead_1"}, nil).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, StateSubmitted, fx.form.State())
}

func TestSubmit_NoLeadIDSkipsCookie(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)

	fx.leads.On("CreateLead", mock.Anything, mock.Anything).
		Return(&leads.LeadResult{StatusCode: 204}, nil).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Empty(t, fx.cookies.cookies)
}

// ==========================
// Payload Tests
// ==========================

func TestParseFootfall(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1200", 1200},
		{" 75 ", 75},
		{"12.5", 12.5},
		{"", 0},
		{"abc", 0},
		{"1,200", 0},
		{"NaN", 0},
		{"Infinity", 0},
		{"1e3", 1000},
		{"0x1F", 31},
		{"0X1f", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"0x", 0},
		{"0xZZ", 0},
		{"-0x1F", 0},
		{"0x-1F", 0},
		{"1_000", 0},
		{"0x1_0", 0},
		{"-0", 0},
		{"007", 7},
	}
	for _, tt := range tests {
		got := parseFootfall(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.False(t, math.Signbit(got), tt.in)
	}
}

func TestSubmit_UnparseableFootfallSendsZero(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)
	fx.form.Update(FieldAvgMonthlyFootfall, "about a thousand")

	fx.leads.On("CreateLead", mock.Anything, mock.MatchedBy(func(l *leads.LeadRequest) bool {
		return l.AvgMonthlyFootfall == 0
	})).Return(&leads.LeadResult{StatusCode: 201, LeadID: "x"}, nil).Once()

	result, err := fx.form.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	fx.leads.AssertExpectations(t)
}

func TestGetPayloadSchema_AcceptsBuiltPayload(t *testing.T) {
	fx := newFixture(t)
	fillValid(t, fx.form)
	payload := buildPayload(fx.form.Values(), "9876543210", "website")

	result, err := validation.ValidateValue(payload, GetPayloadSchema())
	require.NoError(t, err)
	assert.True(t, result.Valid, strings.Join(result.GetErrorMessages(), "; "))

	payload.ContactPhone = "98765"
	result, err = validation.ValidateValue(payload, GetPayloadSchema())
	require.NoError(t, err)
	assert.False(t, result.Valid)
}
