// Command implicit-login obtains an OAuth 2.0 access token with the implicit
// grant and prints it to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-training/oauth2-implicit/pkg/auth"
	"github.com/go-training/oauth2-implicit/pkg/config"
	"github.com/go-training/oauth2-implicit/pkg/core"
	"github.com/go-training/oauth2-implicit/pkg/logger"
	"github.com/go-training/oauth2-implicit/pkg/popup"
	"github.com/go-training/oauth2-implicit/pkg/probe"
	"github.com/go-training/oauth2-implicit/pkg/store"

	"github.com/appleboy/graceful"
)

// fatalError logs an error message and exits the program with status code 1
// If errors are provided, the first error will be logged with the message
func fatalError(message string, errors ...error) {
	if len(errors) > 0 && errors[0] != nil {
		slog.Error(message, "err", errors[0])
	} else {
		slog.Error(message)
	}
	os.Exit(1)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalError("Failed to load configuration", err)
	}

	var scopes string
	var clearTokens bool
	flag.StringVar(&cfg.Provider, "provider", cfg.Provider,
		"provider preset ("+strings.Join(auth.ProviderNames(), ", ")+")")
	flag.StringVar(&cfg.AuthURL, "auth-url", cfg.AuthURL, "authorization endpoint, overrides -provider")
	flag.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "OAuth client ID")
	flag.StringVar(&scopes, "scopes", strings.Join(cfg.Scopes, ","), "comma separated scopes")
	flag.StringVar(&cfg.ResponseType, "response-type", cfg.ResponseType, "response_type parameter")
	flag.StringVar(&cfg.RedirectAddr, "addr", cfg.RedirectAddr, "address the redirect server listens on")
	flag.StringVar(&cfg.WindowURL, "window-url", cfg.WindowURL, "redirect URI, defaults to the local callback")
	flag.BoolVar(&cfg.LenientState, "lenient-state", cfg.LenientState,
		"accept redirects without state, for providers that drop it")
	flag.IntVar(&cfg.WindowHeight, "height", cfg.WindowHeight, "authorization window height")
	flag.IntVar(&cfg.WindowWidth, "width", cfg.WindowWidth, "authorization window width")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "token store (memory, file, redis or sqlite)")
	flag.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "file or sqlite store path")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn or error)")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "how long to wait for authorization")
	flag.StringVar(&cfg.ProbeURL, "probe", cfg.ProbeURL, "call this URL with the token after login")
	flag.BoolVar(&clearTokens, "clear", false, "remove every cached token before logging in")
	flag.Parse()
	cfg.Scopes = config.SplitList(scopes)

	if _, ok := logger.ParseLevel(cfg.LogLevel); cfg.LogLevel != "" && !ok {
		fatalError("Invalid log level: " + cfg.LogLevel)
	}
	logger.NewWithLevel(cfg.LogLevel)

	req, err := cfg.AuthRequest()
	if err != nil {
		fatalError("Invalid authorization request", err)
	}

	storeCfg := cfg.StoreConfig()
	if !storeCfg.Type.IsValid() {
		fatalError("Invalid store type: " + cfg.Store)
	}
	tokenStore, err := store.NewStore(storeCfg)
	if err != nil {
		fatalError("Failed to create token store", err)
	}
	defer func() {
		if err := store.Close(tokenStore); err != nil {
			slog.Error("Failed to close token store", "err", err)
		}
	}()

	windowURL := cfg.WindowURL
	if windowURL == "" {
		windowURL = popup.CallbackURL(cfg.RedirectAddr)
	}
	opts := []auth.Option{auth.WithOAuthWindowURL(windowURL)}
	if cfg.LenientState {
		opts = append(opts, auth.WithLenientState())
	}
	controller := auth.NewController(tokenStore, popup.NewBrowserDriver(os.Stderr), opts...)
	controller.SetWindowHeight(cfg.WindowHeight).SetWindowWidth(cfg.WindowWidth)
	defer controller.Close()

	server := popup.NewRedirectServer(cfg.RedirectAddr, controller)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := graceful.NewManager(graceful.WithContext(ctx))

	m.AddRunningJob(func(ctx context.Context) error {
		slog.Info("Redirect server listening", "addr", cfg.RedirectAddr, "callback", windowURL)
		if err := server.ListenAndServe(); err != nil {
			cancel()
			return err
		}
		return nil
	})

	var loginErr error
	m.AddRunningJob(func(ctx context.Context) error {
		// Stop the manager once the token is printed, even if no signal arrives.
		defer cancel()
		loginErr = login(ctx, controller, req, cfg, clearTokens)
		return loginErr
	})

	m.AddShutdownJob(func() error {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	<-m.Done()
	if loginErr != nil {
		fatalError("Login failed", loginErr)
	}
}

func login(ctx context.Context, c *auth.Controller, req core.AuthRequest, cfg *config.Config, clearTokens bool) error {
	ctx = core.WithRequestID(ctx)
	log := core.LoggerFromCtx(ctx)

	if clearTokens {
		if err := c.ClearAllTokens(ctx); err != nil {
			return fmt.Errorf("clear tokens: %w", err)
		}
		log.Info("Cleared cached tokens")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	log.Info("Waiting for authorization", "timeout", cfg.Timeout)
	token, err := c.Token(ctx, req)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("no redirect received within %s", cfg.Timeout)
	}
	if err != nil {
		return err
	}
	fmt.Println(token)

	if cfg.ProbeURL != "" {
		resp, err := probe.Do(ctx, c.TokenSource(ctx, req), cfg.ProbeURL, "implicit-login")
		if err != nil {
			return fmt.Errorf("probe %s: %w", cfg.ProbeURL, err)
		}
		log.Info("Probe succeeded", "url", cfg.ProbeURL, "headers", resp.Headers)
	}
	return nil
}
