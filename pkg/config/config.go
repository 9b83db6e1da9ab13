// Package config loads the login client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-training/oauth2-implicit/pkg/auth"
	"github.com/go-training/oauth2-implicit/pkg/core"
	"github.com/go-training/oauth2-implicit/pkg/store"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrUnknownProvider is returned when Provider names no known preset.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrMissingAuthURL is returned when neither AuthURL nor Provider is set.
	ErrMissingAuthURL = errors.New("auth url or provider is required")
)

// Config holds every setting of the login client.
type Config struct {
	Provider      string        `env:"OAUTH2_IMPLICIT_PROVIDER"`
	AuthURL       string        `env:"OAUTH2_IMPLICIT_AUTH_URL"`
	ClientID      string        `env:"OAUTH2_IMPLICIT_CLIENT_ID"`
	Scopes        []string      `env:"OAUTH2_IMPLICIT_SCOPES"         envSeparator:","`
	ResponseType  string        `env:"OAUTH2_IMPLICIT_RESPONSE_TYPE"  envDefault:"token"`
	RedirectAddr  string        `env:"OAUTH2_IMPLICIT_REDIRECT_ADDR"  envDefault:":8085"`
	WindowURL     string        `env:"OAUTH2_IMPLICIT_WINDOW_URL"`
	LenientState  bool          `env:"OAUTH2_IMPLICIT_LENIENT_STATE"`
	WindowHeight  int           `env:"OAUTH2_IMPLICIT_WINDOW_HEIGHT"  envDefault:"600"`
	WindowWidth   int           `env:"OAUTH2_IMPLICIT_WINDOW_WIDTH"   envDefault:"800"`
	Store         string        `env:"OAUTH2_IMPLICIT_STORE"          envDefault:"file"`
	StorePath     string        `env:"OAUTH2_IMPLICIT_STORE_PATH"`
	RedisAddr     string        `env:"OAUTH2_IMPLICIT_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string        `env:"OAUTH2_IMPLICIT_REDIS_PASSWORD"`
	RedisDB       int           `env:"OAUTH2_IMPLICIT_REDIS_DB"       envDefault:"0"`
	LogLevel      string        `env:"OAUTH2_IMPLICIT_LOG_LEVEL"`
	Timeout       time.Duration `env:"OAUTH2_IMPLICIT_TIMEOUT"        envDefault:"5m"`
	ProbeURL      string        `env:"OAUTH2_IMPLICIT_PROBE_URL"`
}

// Load reads an optional .env file from the working directory, then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the configuration from environment variables only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Scopes = trimCSV(cfg.Scopes)
	return cfg, nil
}

// ResolveAuthURL returns AuthURL, or the authorization endpoint of the Provider preset.
func (c *Config) ResolveAuthURL() (string, error) {
	if c.AuthURL != "" {
		return c.AuthURL, nil
	}
	if c.Provider == "" {
		return "", ErrMissingAuthURL
	}
	endpoint, ok := auth.ProviderEndpoint(c.Provider)
	if !ok {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownProvider, c.Provider,
			strings.Join(auth.ProviderNames(), ", "))
	}
	return endpoint.AuthURL, nil
}

// AuthRequest builds the authorization request described by the configuration.
func (c *Config) AuthRequest() (core.AuthRequest, error) {
	authURL, err := c.ResolveAuthURL()
	if err != nil {
		return core.AuthRequest{}, err
	}
	req := core.NewAuthRequest(authURL, c.ClientID).
		WithScopes(c.Scopes...).
		WithResponseType(c.ResponseType)
	if err := req.Validate(); err != nil {
		return core.AuthRequest{}, err
	}
	return req, nil
}

// StoreConfig maps the store settings onto a store.Config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Type: store.ParseStoreType(c.Store),
		Path: c.StorePath,
		Redis: store.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
	}
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	return trimCSV(strings.Split(s, ","))
}

func trimCSV(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
