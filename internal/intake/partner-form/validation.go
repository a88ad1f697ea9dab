package partnerform

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/leads"
	"salon-partner-intake/internal/common/validation"
)

const PhoneDigits = 10

const (
	HintPhone = "Phone number must be exactly 10 digits."
	HintEmail = "Please enter a valid email address."
)

// notSpaceOrAt matches one character that is neither whitespace nor "@",
// counting Unicode space separators and BOM as whitespace.
const notSpaceOrAt = `[^\s\v\p{Z}\x{FEFF}@]`

var (
	emailPattern = regexp.MustCompile(`^` + notSpaceOrAt + `+@` + notSpaceOrAt + `+\.` + notSpaceOrAt + `+$`)
	nonDigit     = regexp.MustCompile(`\D`)
)

func StripNonDigits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// computeHints returns the inline hints for the current values. Empty
// fields never get a hint.
func computeHints(values FormState) map[Field]string {
	hints := make(map[Field]string)
	if values.Email != "" && !IsValidEmail(values.Email) {
		hints[FieldEmail] = HintEmail
	}
	if values.Phone != "" && len(values.Phone) != PhoneDigits {
		hints[FieldPhone] = HintPhone
	}
	return hints
}

// checkRequired reports the first required or select field, in display
// order, that is blank or holds a value outside its options.
func checkRequired(values FormState) (Field, *errors.StandardError) {
	result := validation.ValidateStruct(values)
	first, ok := result.First()
	if !ok {
		return "", nil
	}
	field := Field(first.Field)
	return field, errors.NewMissingFieldError(string(field), first.Code)
}

func missingFieldDescription(field Field, rule string) string {
	if rule == "oneof" {
		return fmt.Sprintf("Please select a valid %s.", field.Label())
	}
	return fmt.Sprintf("Please fill in %s.", field.Label())
}

// parseFootfall converts the footfall text to a number the way a browser
// Number() call reads it: decimal and exponent forms, plus unsigned 0x, 0o
// and 0b integers. Digit separators are not accepted. Anything that is not
// a finite number becomes 0.
func parseFootfall(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.ContainsRune(trimmed, '_') {
		return 0
	}

	if len(trimmed) > 2 && trimmed[0] == '0' {
		if base, ok := integerPrefixes[trimmed[1]]; ok {
			digits := trimmed[2:]
			if digits[0] == '+' || digits[0] == '-' {
				return 0
			}
			n, ok := new(big.Int).SetString(digits, base)
			if !ok {
				return 0
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return finiteOrZero(f)
		}
	}

	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(n)
}

var integerPrefixes = map[byte]int{
	'x': 16, 'X': 16,
	'o': 8, 'O': 8,
	'b': 2, 'B': 2,
}

// finiteOrZero also folds -0 into 0.
func finiteOrZero(n float64) float64 {
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func buildPayload(values FormState, phone, source string) *leads.LeadRequest {
	return &leads.LeadRequest{
		Source:             source,
		SalonName:          values.SalonName,
		BranchNumber:       values.BranchID,
		City:               values.City,
		AvgMonthlyFootfall: parseFootfall(values.AvgMonthlyFootfall),
		ClientType:         values.ClientType,
		ContactName:        values.ContactName,
		ContactEmail:       values.Email,
		ContactPhone:       phone,
		ContactDesignation: values.Designation,
		BusinessType:       values.BusinessType,
		GSTIN:              values.GSTIN,
	}
}

// GetInputSchema describes the JSON body accepted by the JSON submit
// endpoint. Values are checked for shape only; content rules run in Submit.
func GetInputSchema() validation.JSONSchema {
	props := make(map[string]validation.Property, len(Fields))
	for _, f := range Fields {
		props[string(f)] = validation.Property{
			Type:        "string",
			Description: f.Label(),
			MaxLength:   intPtr(500),
		}
	}
	return validation.JSONSchema{
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: false,
	}
}

// GetPayloadSchema describes the body sent to POST /leads.
func GetPayloadSchema() validation.JSONSchema {
	str := func(desc string) validation.Property {
		return validation.Property{Type: "string", Description: desc}
	}
	return validation.JSONSchema{
		Type: "object",
		Required: []string{
			"source", "salonName", "branchNumber", "city", "avgMonthlyFootfall",
			"clientType", "contactName", "contactEmail", "contactPhone",
			"contactDesignation", "businessType", "gstin",
		},
		Properties: map[string]validation.Property{
			"source":       {Type: "string", Enum: []string{"website"}},
			"salonName":    str("Salon name"),
			"branchNumber": str("Branch identifier"),
			"city":         str("City"),
			"avgMonthlyFootfall": {
				Type:        "number",
				Description: "Average monthly footfall, 0 when unparseable",
			},
			"clientType":  {Type: "string", Enum: ClientTypes},
			"contactName": str("Contact person"),
			"contactEmail": {
				Type:    "string",
				Pattern: strPtr(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
			},
			"contactPhone": {
				Type:    "string",
				Pattern: strPtr(`^[0-9]{10}$`),
			},
			"contactDesignation": {Type: "string", Enum: Designations},
			"businessType":       {Type: "string", Enum: BusinessTypes},
			"gstin":              str("Tax identifier, may be empty"),
		},
		AdditionalProperties: false,
	}
}

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}
