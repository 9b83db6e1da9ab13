package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/go-training/oauth2-implicit/pkg/core"
	"github.com/go-training/oauth2-implicit/pkg/store"
)

func TestTokenCache_StoreLookup(t *testing.T) {
	cache := NewTokenCache(store.NewMemoryStore())
	ctx := context.Background()
	fp := testRequest().Fingerprint()

	info, err := cache.Lookup(ctx, fp)
	if err != nil || info != nil {
		t.Fatalf("Lookup() on empty cache = (%v, %v), want (nil, nil)", info, err)
	}

	want := &core.TokenInfo{AccessToken: "abc", TokenType: "Bearer", Expires: expiry(3600000)}
	if err := cache.Store(ctx, fp, want); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := cache.Lookup(ctx, fp)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.AccessToken != "abc" || got.TokenType != "Bearer" || *got.Expires != 3600000 {
		t.Errorf("Lookup() = %+v, want %+v", got, want)
	}
}

func TestTokenCache_UnreadableRecord(t *testing.T) {
	s := store.NewMemoryStore()
	cache := NewTokenCache(s)
	ctx := context.Background()

	if err := s.Set(ctx, "fp", `{"access_token":"abc"}`); err != nil {
		t.Fatal(err)
	}

	info, err := cache.Lookup(ctx, "fp")
	if err != nil || info != nil {
		t.Errorf("Lookup() = (%v, %v), want (nil, nil) for unreadable record", info, err)
	}
}

func TestTokenCache_StoreErrors(t *testing.T) {
	boom := errors.New("unavailable")
	cache := NewTokenCache(&failingStore{TokenStore: store.NewMemoryStore(), getErr: boom, setErr: boom})
	ctx := context.Background()

	if _, err := cache.Lookup(ctx, "fp"); !errors.Is(err, boom) {
		t.Errorf("Lookup() error = %v, want %v", err, boom)
	}
	if err := cache.Store(ctx, "fp", &core.TokenInfo{AccessToken: "abc"}); !errors.Is(err, boom) {
		t.Errorf("Store() error = %v, want %v", err, boom)
	}
}
