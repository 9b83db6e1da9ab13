// Package store provides core.TokenStore backends for cached OAuth tokens.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// keyLister is the subset of core.TokenStore needed to clear a store key by key.
type keyLister interface {
	Keys(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, key string) error
}

// ClearKeys removes every key reported by s.
// Stores without a cheaper bulk delete use it to implement Clear.
func ClearKeys(ctx context.Context, s keyLister) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	for _, key := range keys {
		if err := s.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove key %q: %w", key, err)
		}
	}
	return nil
}

func prefixed(key string) string {
	return core.StoragePrefix + key
}

func unprefixed(key string) (string, bool) {
	return strings.CutPrefix(key, core.StoragePrefix)
}
