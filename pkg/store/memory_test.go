package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// testTokenStore exercises the core.TokenStore contract shared by every backend.
func testTokenStore(t *testing.T, store core.TokenStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		if err := store.Set(ctx, "", "v"); !errors.Is(err, core.ErrEmptyKey) {
			t.Errorf("Set() error = %v, want ErrEmptyKey", err)
		}
		if _, err := store.Get(ctx, ""); !errors.Is(err, core.ErrEmptyKey) {
			t.Errorf("Get() error = %v, want ErrEmptyKey", err)
		}
		if err := store.Remove(ctx, ""); !errors.Is(err, core.ErrEmptyKey) {
			t.Errorf("Remove() error = %v, want ErrEmptyKey", err)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		key := `{"client_id":"abc"}`
		if err := store.Set(ctx, key, "first"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := store.Set(ctx, key, "second"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "second" {
			t.Errorf("Get() = %q, want %q", got, "second")
		}
	})

	t.Run("keys and remove", func(t *testing.T) {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		for _, key := range []string{"b", "a", "c"} {
			if err := store.Set(ctx, key, "v-"+key); err != nil {
				t.Fatalf("Set(%q) error = %v", key, err)
			}
		}
		if err := store.Remove(ctx, "b"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if err := store.Remove(ctx, "never-set"); err != nil {
			t.Errorf("Remove() of missing key error = %v, want nil", err)
		}

		keys, err := store.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		slices.Sort(keys)
		if !slices.Equal(keys, []string{"a", "c"}) {
			t.Errorf("Keys() = %v, want [a c]", keys)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if err := store.Set(ctx, "x", "1"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		keys, err := store.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("Keys() after Clear() = %v, want empty", keys)
		}
		if _, err := store.Get(ctx, "x"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get() after Clear() error = %v, want ErrNotFound", err)
		}
	})
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}

	if store.entries == nil {
		t.Error("entries map should be initialized")
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	testTokenStore(t, NewMemoryStore())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			if err := store.Set(ctx, key, "value"); err != nil {
				t.Errorf("Set() error = %v", err)
			}
			if _, err := store.Get(ctx, key); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 50 {
		t.Errorf("Keys() returned %d keys, want 50", len(keys))
	}
}

func TestClearKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{"a", "b"} {
		if err := store.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := ClearKeys(ctx, store); err != nil {
		t.Fatalf("ClearKeys() error = %v", err)
	}
	if keys, _ := store.Keys(ctx); len(keys) != 0 {
		t.Errorf("Keys() = %v, want empty", keys)
	}
}
