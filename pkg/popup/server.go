package popup

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-training/oauth2-implicit/pkg/auth"
	"github.com/go-training/oauth2-implicit/pkg/core"

	sloggin "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
)

const (
	// CallbackPath is the redirect URI path registered with the provider.
	CallbackPath = "/oauth/callback"
	// FragmentPath receives the fragment posted by the callback page.
	FragmentPath = "/oauth/fragment"
)

// Finisher completes an authorization flow from a redirect fragment.
type Finisher interface {
	Finish(ctx context.Context, fragment string) error
}

// RedirectServer serves the redirect URI on the loopback interface.
type RedirectServer struct {
	addr     string
	finisher Finisher
	srv      *http.Server
}

// NewRedirectServer creates a RedirectServer listening on addr.
func NewRedirectServer(addr string, finisher Finisher) *RedirectServer {
	s := &RedirectServer{addr: addr, finisher: finisher}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *RedirectServer) routes() *gin.Engine {
	router := gin.New()
	router.Use(sloggin.SetLogger(), gin.Recovery())
	router.GET(CallbackPath, s.handleCallback)
	router.POST(FragmentPath, s.handleFragment)
	return router
}

// Handler returns the HTTP handler, mainly for tests.
func (s *RedirectServer) Handler() http.Handler {
	return s.srv.Handler
}

// CallbackURL is the redirect URI to hand to the controller.
func (s *RedirectServer) CallbackURL() string {
	return CallbackURL(s.addr)
}

// CallbackURL builds the loopback redirect URI for a listen address such as ":8085".
func CallbackURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + CallbackPath
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + CallbackPath
}

// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
func (s *RedirectServer) ListenAndServe() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done.
func (s *RedirectServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *RedirectServer) handleCallback(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(callbackPage))
}

func (s *RedirectServer) handleFragment(c *gin.Context) {
	ctx := core.WithRequestID(c.Request.Context())
	logger := core.LoggerFromCtx(ctx)

	if !sameOrigin(c.Request) {
		logger.Warn("Rejected fragment from foreign origin",
			"origin", c.GetHeader("Origin"), "referer", c.GetHeader("Referer"))
		c.JSON(http.StatusForbidden, gin.H{"error": "cross-origin request rejected"})
		return
	}

	fragment := c.PostForm("fragment")
	err := s.finisher.Finish(ctx, fragment)

	var perr *core.ProviderError
	var merr *core.MalformedRedirectError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.As(err, &perr):
		logger.Warn("Provider rejected authorization", "code", perr.Code)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             perr.Code,
			"error_description": perr.Description,
			"error_uri":         perr.URI,
		})
	case errors.As(err, &merr):
		logger.Warn("Malformed redirect fragment", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrNoPendingFlow), errors.Is(err, auth.ErrUnknownFlow):
		logger.Warn("Redirect does not match a pending flow", "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger.Error("Failed to finish authorization", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// sameOrigin reports whether a fragment post came from a page served by this
// server. Browsers attach Origin (or at least Referer) to a POST, so a page on
// another site is caught; requests carrying neither come from non-browser clients.
func sameOrigin(r *http.Request) bool {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	self := scheme + "://" + r.Host

	if origin := r.Header.Get("Origin"); origin != "" {
		return origin == self
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		u, err := url.Parse(referer)
		if err != nil {
			return false
		}
		return u.Scheme+"://"+u.Host == self
	}
	return true
}
