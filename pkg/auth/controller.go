// Package auth implements the implicit-grant token lifecycle: cache lookup,
// the browser round trip to the provider, and redirect fragment handling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/go-training/oauth2-implicit/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultWindowHeight is the default height of the authorization window, in pixels.
	DefaultWindowHeight = 600
	// DefaultWindowWidth is the default width of the authorization window, in pixels.
	DefaultWindowWidth = 800

	tracerName = "github.com/go-training/oauth2-implicit/pkg/auth"
)

var (
	// ErrNoPendingFlow is returned by Finish when no login is waiting for a redirect.
	ErrNoPendingFlow = errors.New("no pending authorization flow")
	// ErrUnknownFlow is returned by Finish when the fragment's state matches no pending login.
	ErrUnknownFlow = errors.New("unknown authorization flow")
)

// Callback receives the outcome of a login: an access token, or an error.
type Callback func(token string, err error)

// Driver shows the provider's authorization page to the user.
// Completion is reported separately, through Controller.Finish.
type Driver interface {
	Open(ctx context.Context, authURL string, height, width int) error
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, authURL string, height, width int) error

// Open calls f.
func (f DriverFunc) Open(ctx context.Context, authURL string, height, width int) error {
	return f(ctx, authURL, height, width)
}

type flow struct {
	id          string
	fingerprint string
	callback    Callback
}

// Controller drives implicit-grant logins and caches the resulting tokens.
// It is safe for concurrent use; callbacks always run on its Scheduler.
type Controller struct {
	cache     *TokenCache
	driver    Driver
	clock     core.Clock
	codex     core.URLCodex
	scheduler Scheduler
	tracer    trace.Tracer
	ownLoop   *EventLoop
	lenient   bool

	mu        sync.Mutex
	windowURL string
	height    int
	width     int
	pending   map[string]*flow
	order     []string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for expiry decisions.
func WithClock(clock core.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithURLCodex sets the codec used to build authorization URLs.
func WithURLCodex(codex core.URLCodex) Option {
	return func(c *Controller) { c.codex = codex }
}

// WithScheduler sets where callbacks run. By default the Controller starts its own EventLoop.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithTracer sets the tracer used for login and finish spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// WithOAuthWindowURL sets the redirect URI the provider sends the user back to.
func WithOAuthWindowURL(url string) Option {
	return func(c *Controller) { c.windowURL = url }
}

// WithLenientState lets a redirect without a state parameter complete the most
// recently started login, for providers that drop state. Off by default: any
// page that can post to the redirect handler could then finish a login.
func WithLenientState() Option {
	return func(c *Controller) { c.lenient = true }
}

// NewController creates a Controller caching tokens in store and opening
// authorization pages with driver.
func NewController(store core.TokenStore, driver Driver, opts ...Option) *Controller {
	c := &Controller{
		cache:   NewTokenCache(store),
		driver:  driver,
		clock:   core.SystemClock{},
		codex:   core.QueryCodex{},
		height:  DefaultWindowHeight,
		width:   DefaultWindowWidth,
		pending: make(map[string]*flow),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.scheduler == nil {
		c.ownLoop = NewEventLoop()
		c.scheduler = c.ownLoop
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c
}

// Close stops the Controller's own event loop, after running queued callbacks.
// It has no effect when a Scheduler was supplied.
func (c *Controller) Close() {
	if c.ownLoop != nil {
		c.ownLoop.Close()
	}
}

// SetOAuthWindowURL sets the redirect URI used by subsequent logins.
func (c *Controller) SetOAuthWindowURL(url string) *Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windowURL = url
	return c
}

// SetWindowHeight sets the authorization window height in pixels. The default is 600.
func (c *Controller) SetWindowHeight(height int) *Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = height
	return c
}

// SetWindowWidth sets the authorization window width in pixels. The default is 800.
func (c *Controller) SetWindowWidth(width int) *Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width = width
	return c
}

// OAuthWindowURL returns the configured redirect URI.
func (c *Controller) OAuthWindowURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowURL
}

// WindowSize returns the configured authorization window height and width.
func (c *Controller) WindowSize() (height, width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, c.width
}

// Pending returns the number of logins waiting for a redirect.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Login requests an access token for req and reports it to cb.
//
// A cached token that does not expire within the freshness window is passed to
// cb directly. Otherwise the driver opens the provider's authorization page and
// cb is called once Finish receives the redirect. Either way cb runs on the
// Scheduler, never before Login returns.
//
// Login returns the ID of the flow awaiting a redirect, or "" if none was started.
func (c *Controller) Login(ctx context.Context, req core.AuthRequest, cb Callback) string {
	ctx, span := c.tracer.Start(ctx, "auth.Login", trace.WithAttributes(
		attribute.String("oauth.client_id", req.ClientID),
		attribute.String("oauth.auth_url", req.AuthURL),
	))
	defer span.End()
	logger := core.LoggerFromCtx(ctx)

	if err := req.Validate(); err != nil {
		recordError(span, err)
		c.deliver(cb, "", err)
		return ""
	}

	fingerprint := req.Fingerprint()
	info, err := c.cache.Lookup(ctx, fingerprint)
	if err != nil {
		recordError(span, err)
		logger.Error("Token cache lookup failed", "err", err)
		c.deliver(cb, "", err)
		return ""
	}

	if info != nil && !info.ExpiringSoon(c.clock.Now()) {
		span.SetAttributes(attribute.Bool("oauth.cache_hit", true))
		logger.Debug("Using cached access token", "client_id", req.ClientID)
		c.deliver(cb, info.AccessToken, nil)
		return ""
	}
	span.SetAttributes(attribute.Bool("oauth.cache_hit", false))

	f := &flow{
		id:          core.NewFlowID(),
		fingerprint: fingerprint,
		callback:    cb,
	}
	ctx = core.WithFlowID(ctx, f.id)
	logger = core.LoggerFromCtx(ctx)

	c.mu.Lock()
	authURL := req.URL(c.codex) +
		"&state=" + c.codex.Encode(f.id) +
		"&redirect_uri=" + c.codex.Encode(c.windowURL)
	height, width := c.height, c.width
	c.pending[f.id] = f
	c.order = append(c.order, f.id)
	c.mu.Unlock()

	logger.Info("Opening authorization window", "client_id", req.ClientID, "height", height, "width", width)
	if err := c.driver.Open(ctx, authURL, height, width); err != nil {
		c.forget(f.id)
		err = fmt.Errorf("failed to open authorization window: %w", err)
		recordError(span, err)
		logger.Error("Authorization window failed", "err", err)
		c.deliver(cb, "", err)
		return ""
	}
	span.SetAttributes(attribute.String("oauth.flow_id", f.id))
	return f.id
}

// Finish completes a pending login with the redirect fragment delivered by the provider,
// for example "#access_token=...&expires_in=3600&state=...".
//
// The login is chosen by the fragment's state. A fragment without state is
// rejected with ErrUnknownFlow unless WithLenientState is set, in which case it
// completes the most recent pending login. ErrNoPendingFlow and ErrUnknownFlow
// are returned without invoking any callback. Otherwise the login's callback is
// scheduled with the outcome, and Finish returns the same error it delivered.
func (c *Controller) Finish(ctx context.Context, fragment string) error {
	ctx, span := c.tracer.Start(ctx, "auth.Finish")
	defer span.End()

	parsed := ParseFragment(fragment)
	f, err := c.claim(parsed.State)
	if err != nil {
		recordError(span, err)
		core.LoggerFromCtx(ctx).Warn("Redirect does not match a pending login", "err", err)
		return err
	}
	ctx = core.WithFlowID(ctx, f.id)
	span.SetAttributes(attribute.String("oauth.flow_id", f.id))
	logger := core.LoggerFromCtx(ctx)

	token, err := c.complete(ctx, f, parsed, fragment)
	if err != nil {
		recordError(span, err)
		logger.Warn("Authorization failed", "err", err)
	} else {
		logger.Info("Authorization complete")
	}
	c.deliver(f.callback, token, err)
	return err
}

func (c *Controller) complete(ctx context.Context, f *flow, parsed Fragment, fragment string) (string, error) {
	if parsed.HasError {
		return "", &core.ProviderError{
			Code:        parsed.Error,
			Description: c.decode(parsed.ErrorDescription),
			URI:         c.decode(parsed.ErrorURI),
		}
	}

	info := &core.TokenInfo{
		AccessToken: parsed.AccessToken,
		TokenType:   parsed.TokenType,
	}
	if parsed.HasExpiresIn {
		seconds, err := strconv.ParseFloat(parsed.ExpiresIn, 64)
		if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return "", &core.MalformedRedirectError{Fragment: fragment, Reason: "invalid expires_in"}
		}
		expires := c.clock.Now() + seconds*1000
		info.Expires = &expires
	}
	if info.AccessToken == "" {
		return "", &core.MalformedRedirectError{Fragment: fragment}
	}

	if err := c.cache.Store(ctx, f.fingerprint, info); err != nil {
		return "", err
	}
	return info.AccessToken, nil
}

// ClearAllTokens removes every cached token, so the next Login for any request
// opens the authorization window.
func (c *Controller) ClearAllTokens(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// claim removes and returns the flow a redirect belongs to.
func (c *Controller) claim(state string) (*flow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := state
	if id == "" {
		if len(c.order) == 0 {
			return nil, ErrNoPendingFlow
		}
		if !c.lenient {
			return nil, fmt.Errorf("%w: redirect carries no state", ErrUnknownFlow)
		}
		id = c.order[len(c.order)-1]
	}
	f, ok := c.pending[id]
	if !ok {
		return nil, fmt.Errorf("%w: state %q", ErrUnknownFlow, state)
	}
	c.remove(id)
	return f, nil
}

// forget drops a pending flow without resolving it.
func (c *Controller) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(id)
}

func (c *Controller) remove(id string) {
	delete(c.pending, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
}

func (c *Controller) deliver(cb Callback, token string, err error) {
	if cb == nil {
		return
	}
	c.scheduler.ScheduleDeferred(func() {
		cb(token, err)
	})
}

func (c *Controller) decode(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := c.codex.Decode(s)
	if err != nil {
		return s
	}
	return decoded
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
