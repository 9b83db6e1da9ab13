package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-training/oauth2-implicit/pkg/core"
	"github.com/go-training/oauth2-implicit/pkg/store"
)

// manualScheduler queues tasks until the test runs them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (s *manualScheduler) ScheduleDeferred(task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

func (s *manualScheduler) run() int {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func (c *fakeClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(now float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type openCall struct {
	url    string
	height int
	width  int
}

// recordingDriver records every authorization window it is asked to open.
type recordingDriver struct {
	mu    sync.Mutex
	calls []openCall
	err   error
}

func (d *recordingDriver) Open(_ context.Context, authURL string, height, width int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, openCall{url: authURL, height: height, width: width})
	return d.err
}

func (d *recordingDriver) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *recordingDriver) last(t *testing.T) openCall {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		t.Fatal("driver was never opened")
	}
	return d.calls[len(d.calls)-1]
}

// result captures callback invocations.
type result struct {
	calls int
	token string
	err   error
}

func (r *result) callback() Callback {
	return func(token string, err error) {
		r.calls++
		r.token = token
		r.err = err
	}
}

// failingStore wraps a store and fails the configured operations.
type failingStore struct {
	core.TokenStore
	getErr error
	setErr error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.TokenStore.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.TokenStore.Set(ctx, key, value)
}

type fixture struct {
	store      *store.MemoryStore
	driver     *recordingDriver
	clock      *fakeClock
	scheduler  *manualScheduler
	controller *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     store.NewMemoryStore(),
		driver:    &recordingDriver{},
		clock:     &fakeClock{},
		scheduler: &manualScheduler{},
	}
	f.controller = NewController(f.store, f.driver,
		WithClock(f.clock),
		WithScheduler(f.scheduler),
		WithOAuthWindowURL("http://localhost:8085/oauth/callback"),
	)
	return f
}

func (f *fixture) cache(t *testing.T, req core.AuthRequest, info *core.TokenInfo) {
	t.Helper()
	if err := f.store.Set(context.Background(), req.Fingerprint(), info.Encode()); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

// withState prefixes fragment with the state of the last authorization URL opened.
func (f *fixture) withState(t *testing.T, fragment string) string {
	t.Helper()
	return "#state=" + stateOf(t, f.driver.last(t).url) + "&" + strings.TrimPrefix(fragment, "#")
}

func stateOf(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth URL: %v", err)
	}
	return u.Query().Get("state")
}

func testRequest() core.AuthRequest {
	return core.NewAuthRequest("https://accounts.example.com/o/oauth2/auth", "client-123").
		WithScopes("email", "profile")
}

func expiry(ms float64) *float64 { return &ms }
