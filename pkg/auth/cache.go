package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// TokenCache stores TokenInfo records in a core.TokenStore keyed by request fingerprint.
type TokenCache struct {
	store core.TokenStore
}

// NewTokenCache wraps store.
func NewTokenCache(store core.TokenStore) *TokenCache {
	return &TokenCache{store: store}
}

// Lookup returns the cached token for fingerprint, or nil if there is none
// or the stored record cannot be decoded.
func (c *TokenCache) Lookup(ctx context.Context, fingerprint string) (*core.TokenInfo, error) {
	raw, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached token: %w", err)
	}

	info, err := core.DecodeTokenInfo(raw)
	if err != nil {
		core.LoggerFromCtx(ctx).Debug("Ignoring unreadable cached token", slog.Any("err", err))
		return nil, nil
	}
	return info, nil
}

// Store writes info under fingerprint, replacing any earlier entry.
func (c *TokenCache) Store(ctx context.Context, fingerprint string, info *core.TokenInfo) error {
	if err := c.store.Set(ctx, fingerprint, info.Encode()); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Clear removes every cached token.
func (c *TokenCache) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cached tokens: %w", err)
	}
	return nil
}
