package core

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// StoragePrefix namespaces token entries in shared durable storage.
const StoragePrefix = "oauth2-implicit-"

var (
	// ErrNotFound is returned by a TokenStore when a key has no entry.
	ErrNotFound = errors.New("token entry not found")
	// ErrEmptyKey is returned when a TokenStore is called with an empty key.
	ErrEmptyKey = errors.New("token key cannot be empty")
)

// TokenStore defines a string-keyed persistent map for serialized tokens.
type TokenStore interface {
	Set(ctx context.Context, key, value string) error
	// Get returns ErrNotFound if the key has no entry.
	Get(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Clock reports the current time in milliseconds since the Unix epoch.
type Clock interface {
	Now() float64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall clock time in milliseconds.
func (SystemClock) Now() float64 {
	return float64(time.Now().UnixMilli())
}

// URLCodex encodes and decodes URL components.
type URLCodex interface {
	Encode(s string) string
	Decode(s string) (string, error)
}

// QueryCodex is a URLCodex using query-component percent-encoding.
type QueryCodex struct{}

// Encode percent-encodes s for use in a URL query.
func (QueryCodex) Encode(s string) string {
	return url.QueryEscape(s)
}

// Decode reverses Encode.
func (QueryCodex) Decode(s string) (string, error) {
	return url.QueryUnescape(s)
}
