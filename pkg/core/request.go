package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrInvalidRequest is returned when an AuthRequest cannot be sent to a provider.
var ErrInvalidRequest = errors.New("invalid authorization request")

const (
	// DefaultResponseType is the implicit grant response type.
	DefaultResponseType = "token"
	// DefaultScopeDelimiter separates scopes in the scope parameter.
	DefaultScopeDelimiter = " "
)

// reservedParams are set by the client itself and may not be overridden by extra params.
var reservedParams = []string{"client_id", "response_type", "scope", "state", "redirect_uri"}

// AuthRequest describes an authorization request to an OAuth 2.0 provider.
// Builder methods return copies; an AuthRequest is never mutated in place.
type AuthRequest struct {
	AuthURL        string
	ClientID       string
	Scopes         []string
	ScopeDelimiter string
	ResponseType   string
	Params         map[string]string
}

// NewAuthRequest creates a request for the given authorization endpoint and client.
func NewAuthRequest(authURL, clientID string) AuthRequest {
	return AuthRequest{
		AuthURL:        authURL,
		ClientID:       clientID,
		ScopeDelimiter: DefaultScopeDelimiter,
		ResponseType:   DefaultResponseType,
	}
}

// WithScopes returns a copy of the request with the given scopes, in order.
func (r AuthRequest) WithScopes(scopes ...string) AuthRequest {
	r.Scopes = slices.Clone(scopes)
	return r
}

// WithScopeDelimiter returns a copy of the request using delim to join scopes.
func (r AuthRequest) WithScopeDelimiter(delim string) AuthRequest {
	r.ScopeDelimiter = delim
	return r
}

// WithResponseType returns a copy of the request with the given response type.
func (r AuthRequest) WithResponseType(responseType string) AuthRequest {
	r.ResponseType = responseType
	return r
}

// WithParam returns a copy of the request with an extra provider-specific parameter.
func (r AuthRequest) WithParam(key, value string) AuthRequest {
	params := make(map[string]string, len(r.Params)+1)
	maps.Copy(params, r.Params)
	params[key] = value
	r.Params = params
	return r
}

// Validate reports whether the request can be turned into an authorization URL.
func (r AuthRequest) Validate() error {
	if strings.TrimSpace(r.AuthURL) == "" {
		return fmt.Errorf("%w: authorization URL is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.ClientID) == "" {
		return fmt.Errorf("%w: client ID is required", ErrInvalidRequest)
	}
	for key := range r.Params {
		if slices.Contains(reservedParams, key) {
			return fmt.Errorf("%w: parameter %q is reserved", ErrInvalidRequest, key)
		}
	}
	return nil
}

func (r AuthRequest) scopeDelimiter() string {
	if r.ScopeDelimiter == "" {
		return DefaultScopeDelimiter
	}
	return r.ScopeDelimiter
}

func (r AuthRequest) responseType() string {
	if r.ResponseType == "" {
		return DefaultResponseType
	}
	return r.ResponseType
}

// fingerprint fixes the field order of the serialized request.
type fingerprint struct {
	AuthURL        string            `json:"auth_url"`
	ClientID       string            `json:"client_id"`
	Scopes         []string          `json:"scopes"`
	ScopeDelimiter string            `json:"scope_delimiter"`
	ResponseType   string            `json:"response_type"`
	Params         map[string]string `json:"params,omitempty"`
}

// Fingerprint returns the canonical serialization of the request, used as its cache key.
// Requests differing in endpoint, client, scopes, response type or extra params
// have different fingerprints.
func (r AuthRequest) Fingerprint() string {
	scopes := r.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	// Marshal cannot fail for strings, slices of strings and string maps.
	data, _ := json.Marshal(fingerprint{
		AuthURL:        r.AuthURL,
		ClientID:       r.ClientID,
		Scopes:         scopes,
		ScopeDelimiter: r.scopeDelimiter(),
		ResponseType:   r.responseType(),
		Params:         r.Params,
	})
	return string(data)
}

// URL builds the authorization URL without the state and redirect_uri parameters.
// Extra params are appended in sorted key order.
func (r AuthRequest) URL(codex URLCodex) string {
	var b strings.Builder
	b.WriteString(r.AuthURL)
	if strings.Contains(r.AuthURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString("client_id=")
	b.WriteString(codex.Encode(r.ClientID))
	b.WriteString("&response_type=")
	b.WriteString(codex.Encode(r.responseType()))
	b.WriteString("&scope=")
	b.WriteString(codex.Encode(strings.Join(r.Scopes, r.scopeDelimiter())))
	for _, key := range slices.Sorted(maps.Keys(r.Params)) {
		b.WriteByte('&')
		b.WriteString(codex.Encode(key))
		b.WriteByte('=')
		b.WriteString(codex.Encode(r.Params[key]))
	}
	return b.String()
}
