// Package leads is a typed client for the remote lead-intake endpoint.
package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"salon-partner-intake/internal/common/errors"
	apihttp "salon-partner-intake/internal/common/http"
	"salon-partner-intake/internal/common/logger"
)

// Path is the lead submission endpoint, relative to the API base URL.
const Path = "/leads"

// Poster is the slice of the request client this package needs.
type Poster interface {
	Post(ctx context.Context, path string, body interface{}) (*apihttp.Response, error)
}

// LeadRequest is the JSON body of POST /leads.
type LeadRequest struct {
	Source             string  `json:"source"`
	SalonName          string  `json:"salonName"`
	BranchNumber       string  `json:"branchNumber"`
	City               string  `json:"city"`
	AvgMonthlyFootfall float64 `json:"avgMonthlyFootfall"`
	ClientType         string  `json:"clientType"`
	ContactName        string  `json:"contactName"`
	ContactEmail       string  `json:"contactEmail"`
	ContactPhone       string  `json:"contactPhone"`
	ContactDesignation string  `json:"contactDesignation"`
	BusinessType       string  `json:"businessType"`
	GSTIN              string  `json:"gstin"`
}

// LeadResult describes an accepted submission. LeadID is empty when the
// 2xx body carried no usable id.
type LeadResult struct {
	StatusCode int
	LeadID     string
}

type createLeadResponse struct {
	ID json.RawMessage `json:"id"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	api    Poster
	logger logger.Logger
}

func NewClient(api Poster, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		api:    api,
		logger: log.WithFields(map[string]interface{}{"component": "leads-client"}),
	}
}

// CreateLead posts one lead. Any 2xx is success; other statuses return a
// SERVER_ERROR carrying the status, and a missing response returns a
// TRANSPORT_ERROR.
func (c *Client) CreateLead(ctx context.Context, lead *LeadRequest) (*LeadResult, error) {
	resp, err := c.api.Post(ctx, Path, lead)
	if err != nil {
		if _, ok := errors.AsStandardError(err); ok {
			return nil, err
		}
		return nil, errors.NewTransportError(err)
	}

	c.logger.Debug("lead endpoint responded", map[string]interface{}{
		"status": resp.StatusCode,
	})

	if !resp.IsSuccess() {
		message := serverMessage(resp.Body)
		c.logger.Error("lead submission rejected", map[string]interface{}{
			"status":        resp.StatusCode,
			"serverMessage": message,
		})
		return nil, errors.NewServerError(resp.StatusCode, message)
	}

	leadID, err := decodeLeadID(resp.Body)
	if err != nil {
		decodeErr := errors.NewDecodeError(resp.StatusCode, err)
		c.logger.Warn("lead accepted but id could not be read", map[string]interface{}{
			"errorCode": string(decodeErr.Code),
			"status":    resp.StatusCode,
			"error":     decodeErr.Details,
		})
	}

	return &LeadResult{
		StatusCode: resp.StatusCode,
		LeadID:     leadID,
	}, nil
}

// decodeLeadID accepts the id as a JSON string or number.
func decodeLeadID(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", fmt.Errorf("empty response body")
	}
	var created createLeadResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	raw := bytes.TrimSpace(created.ID)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("no id in response")
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return "", fmt.Errorf("id is neither string nor number: %s", string(raw))
	}
	return num.String(), nil
}

func serverMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return er.Error.Message
	}
	return strings.TrimSpace(string(body))
}
