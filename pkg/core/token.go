package core

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// FreshnessWindow is how long before expiry, in milliseconds, a token stops being reused.
const FreshnessWindow = 10 * 60 * 1000

const (
	tokenFormatVersion = "v1"
	tokenFieldSep      = ";"
	noExpiry           = "-"
)

// ErrMalformedToken is returned when a stored token record cannot be decoded.
var ErrMalformedToken = errors.New("malformed token record")

// TokenInfo is an access token and the instant it expires.
type TokenInfo struct {
	// AccessToken is empty until a token has been parsed.
	AccessToken string
	TokenType   string
	// Expires is in milliseconds since the Unix epoch; nil when the provider omitted expires_in.
	Expires *float64
}

// ExpiringSoon reports whether the token has no expiry or expires within FreshnessWindow of now.
func (t *TokenInfo) ExpiringSoon(now float64) bool {
	if t.Expires == nil {
		return true
	}
	return *t.Expires < now+FreshnessWindow
}

// Encode serializes the token as v1;<expires|->;<token_type>;<access_token>.
func (t *TokenInfo) Encode() string {
	expires := noExpiry
	if t.Expires != nil {
		expires = strconv.FormatFloat(*t.Expires, 'f', -1, 64)
	}
	return strings.Join([]string{
		tokenFormatVersion,
		expires,
		url.QueryEscape(t.TokenType),
		url.QueryEscape(t.AccessToken),
	}, tokenFieldSep)
}

// DecodeTokenInfo parses a record produced by Encode.
func DecodeTokenInfo(s string) (*TokenInfo, error) {
	parts := strings.Split(s, tokenFieldSep)
	if len(parts) != 4 || parts[0] != tokenFormatVersion {
		return nil, ErrMalformedToken
	}

	info := &TokenInfo{}
	if parts[1] != noExpiry {
		expires, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: expiry: %v", ErrMalformedToken, err)
		}
		if math.IsNaN(expires) || math.IsInf(expires, 0) {
			return nil, fmt.Errorf("%w: expiry %q is not finite", ErrMalformedToken, parts[1])
		}
		info.Expires = &expires
	}

	tokenType, err := url.QueryUnescape(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: token type: %v", ErrMalformedToken, err)
	}
	accessToken, err := url.QueryUnescape(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: access token: %v", ErrMalformedToken, err)
	}
	info.TokenType = tokenType
	info.AccessToken = accessToken
	return info, nil
}

// ProviderError is reported by the authorization provider in the redirect fragment.
type ProviderError struct {
	Code        string
	Description string
	URI         string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("error from provider: ")
	b.WriteString(e.Code)
	if e.Description != "" {
		b.WriteString(" (" + e.Description + ")")
	}
	if e.URI != "" {
		b.WriteString("; see: " + e.URI)
	}
	return b.String()
}

// MalformedRedirectError is returned when a redirect fragment carries neither an error nor a token.
type MalformedRedirectError struct {
	Fragment string
	Reason   string
}

func (e *MalformedRedirectError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed redirect fragment %q: %s", e.Fragment, e.Reason)
	}
	return fmt.Sprintf("could not find access_token in fragment %q", e.Fragment)
}
