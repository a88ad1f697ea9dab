// internal/common/http/policy.go
package http

import (
	"encoding/base64"
	"strings"
)

// AuthPolicy is the authorization treatment chosen for one outbound call.
type AuthPolicy int

const (
	PolicyNone AuthPolicy = iota
	PolicyBasic
	PolicyBearer
)

func (p AuthPolicy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicyBasic:
		return "basic"
	case PolicyBearer:
		return "bearer"
	}
	return "unknown"
}

// EndpointPolicy classifies request paths. It is built once from
// configuration and is read-only afterwards, so a single value can be
// shared by every request.
type EndpointPolicy struct {
	public        []string
	basic         []string
	basicUsername string
	basicPassword string
}

// NewEndpointPolicy copies the endpoint lists so later mutation of the
// caller's slices cannot change classification.
func NewEndpointPolicy(public, basic []string, username, password string) *EndpointPolicy {
	return &EndpointPolicy{
		public:        append([]string(nil), public...),
		basic:         append([]string(nil), basic...),
		basicUsername: username,
		basicPassword: password,
	}
}

// Classify resolves the policy for path. Public wins over basic, basic over
// bearer. Matching is a plain prefix test, so "/leads" also covers
// "/leads/123" and "/leadsboard".
func (p *EndpointPolicy) Classify(path string) AuthPolicy {
	if hasAnyPrefix(path, p.public) {
		return PolicyNone
	}
	if hasAnyPrefix(path, p.basic) {
		return PolicyBasic
	}
	return PolicyBearer
}

// BasicAuthorization returns the Basic scheme header value.
func (p *EndpointPolicy) BasicAuthorization() string {
	credentials := base64.StdEncoding.EncodeToString([]byte(p.basicUsername + ":" + p.basicPassword))
	return "Basic " + credentials
}

// PublicEndpoints returns a copy of the public endpoint list.
func (p *EndpointPolicy) PublicEndpoints() []string {
	return append([]string(nil), p.public...)
}

// BasicAuthEndpoints returns a copy of the basic-auth endpoint list.
func (p *EndpointPolicy) BasicAuthEndpoints() []string {
	return append([]string(nil), p.basic...)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
