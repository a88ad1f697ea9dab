// internal/common/http/client.go
package http

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

	"github.com/google/uuid"

	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/logger"
)

// Client is the single outbound calling surface: fixed base URL, JSON
// content type, and the authorization pipeline around the transport.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	policy     *EndpointPolicy
	logger     logger.Logger
}

// Options configures NewClient. Transport defaults to
// http.DefaultTransport; Timeout 0 leaves the transport default in place.
type Options struct {
	BaseURL   string
	Policy    *EndpointPolicy
	Tokens    TokenStore
	Transport http.RoundTripper
	Timeout   time.Duration
	Logger    logger.Logger
}

// Response is a fully read HTTP response. Any status, including 4xx and
// 5xx, is returned as a Response rather than an error.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a status in [200,300).
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute, got %q", opts.BaseURL)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "request-client"})

	policy := opts.Policy
	if policy == nil {
		policy = NewEndpointPolicy(nil, nil, "", "")
	}

	transport := Chain(opts.Transport,
		ObserveStage(policy, base.Path, log),
		AuthorizeStage(policy, opts.Tokens, base.Host, base.Path, log),
		UnauthorizedStage(opts.Tokens, base.Host, base.Path, log),
	)

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		policy: policy,
		logger: log,
	}, nil
}

// Policy returns the endpoint classification the client applies.
func (c *Client) Policy() *EndpointPolicy {
	return c.policy
}

// Do sends one request to path (relative to the base URL). body may be
// nil, a []byte already encoded as JSON, or any value to marshal.
// A request that gets no response fails with a TRANSPORT_ERROR StandardError.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := encodeBody(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError(fmt.Errorf("read response body: %w", err))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	rel, err := url.Parse(path)
	if err != nil {
		u.Path = u.Path + path
		return u.String()
	}
	u.Path = u.Path + rel.Path
	u.RawQuery = rel.RawQuery
	return u.String()
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}
