// internal/common/http/transport.go
package http

import (
	"net/http"
	"strings"
	"time"

	"salon-partner-intake/internal/common/errors"
	"salon-partner-intake/internal/common/logger"
	"salon-partner-intake/internal/common/metrics"
)

// Stage wraps a RoundTripper with extra behaviour before and/or after the
// call it delegates.
type Stage func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with stages. stages[0] is outermost: it sees the
// request first and the response last.
func Chain(base http.RoundTripper, stages ...Stage) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(stages) - 1; i >= 0; i-- {
		rt = stages[i](rt)
	}
	return rt
}

// endpointPath returns the request path relative to the API base path,
// which is the form the endpoint lists are written in.
func endpointPath(req *http.Request, basePath string) string {
	path := req.URL.Path
	basePath = strings.TrimSuffix(basePath, "/")
	if basePath == "" {
		return path
	}
	if path == basePath {
		return "/"
	}
	if strings.HasPrefix(path, basePath+"/") {
		return strings.TrimPrefix(path, basePath)
	}
	return path
}

// sameHost reports whether req targets the API host. Redirect hops pass
// through the transport as well.
func sameHost(req *http.Request, apiHost string) bool {
	return strings.EqualFold(req.URL.Host, apiHost)
}

func withoutAuthorization(req *http.Request) *http.Request {
	if req.Header.Get("Authorization") == "" {
		return req
	}
	req = req.Clone(req.Context())
	req.Header.Del("Authorization")
	return req
}

// AuthorizeStage attaches the Authorization header chosen by policy to
// requests for apiHost. Requests to any other host go out without one. A
// token store failure is logged and the request goes out unauthenticated.
func AuthorizeStage(policy *EndpointPolicy, tokens TokenStore, apiHost, basePath string, log logger.Logger) Stage {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !sameHost(req, apiHost) {
				log.Debug("request left the API host, sending without credentials", map[string]interface{}{
					"host": req.URL.Host,
				})
				return next.RoundTrip(withoutAuthorization(req))
			}

			path := endpointPath(req, basePath)

			switch policy.Classify(path) {
			case PolicyNone:
				req = withoutAuthorization(req)
			case PolicyBasic:
				req = req.Clone(req.Context())
				req.Header.Set("Authorization", policy.BasicAuthorization())
			case PolicyBearer:
				if tokens == nil {
					break
				}
				token, err := tokens.Token(req.Context())
				if err != nil {
					log.Warn("bearer token read failed", map[string]interface{}{
						"path":  path,
						"error": err,
					})
					break
				}
				if token != "" {
					req = req.Clone(req.Context())
					req.Header.Set("Authorization", "Bearer "+token)
				}
			}
			return next.RoundTrip(req)
		})
	}
}

// UnauthorizedStage clears the stored bearer token whenever the API host
// answers 401. The response itself is passed on untouched.
func UnauthorizedStage(tokens TokenStore, apiHost, basePath string, log logger.Logger) Stage {
	errHandler := errors.NewErrorHandler(log)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			if tokens == nil || !sameHost(req, apiHost) {
				return resp, err
			}

			path := endpointPath(req, basePath)
			if clearErr := tokens.ClearToken(req.Context()); clearErr != nil {
				log.Error("failed to clear bearer token after 401", map[string]interface{}{
					"path":  path,
					"error": clearErr,
				})
				return resp, err
			}
			metrics.TokenClearedTotal.Inc()
			errHandler.Handle("request-client.unauthorized", errors.NewAuthExpiredError(path))
			return resp, err
		})
	}
}

// ObserveStage records request counts and latency per policy.
func ObserveStage(policy *EndpointPolicy, basePath string, log logger.Logger) Stage {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			path := endpointPath(req, basePath)
			label := policy.Classify(path).String()
			start := time.Now()

			resp, err := next.RoundTrip(req)

			status := 0
			if err == nil && resp != nil {
				status = resp.StatusCode
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestsTotal.WithLabelValues(label, metrics.StatusLabel(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(label).Observe(elapsed.Seconds())

			log.Debug("outbound request", map[string]interface{}{
				"method":     req.Method,
				"path":       path,
				"policy":     label,
				"status":     status,
				"durationMs": elapsed.Milliseconds(),
			})
			return resp, err
		})
	}
}
