package auth

import (
	"context"
	"time"

	"github.com/go-training/oauth2-implicit/pkg/core"
	"golang.org/x/oauth2"
)

// Token logs in with req and blocks until the access token arrives or ctx is done.
// A login abandoned through ctx no longer accepts its redirect.
// It must not be called from a task running on the Controller's Scheduler:
// the callback it waits for would be queued behind the caller.
func (c *Controller) Token(ctx context.Context, req core.AuthRequest) (string, error) {
	type result struct {
		token string
		err   error
	}
	done := make(chan result, 1)

	flowID := c.Login(ctx, req, func(token string, err error) {
		done <- result{token: token, err: err}
	})

	select {
	case r := <-done:
		return r.token, r.err
	case <-ctx.Done():
		if flowID != "" {
			c.forget(flowID)
		}
		return "", ctx.Err()
	}
}

// TokenSource returns an oauth2.TokenSource that logs in with req on every call.
// Fresh tokens come from the cache, so only stale ones open the authorization window.
func (c *Controller) TokenSource(ctx context.Context, req core.AuthRequest) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, controller: c, req: req}
}

type tokenSource struct {
	ctx        context.Context
	controller *Controller
	req        core.AuthRequest
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	access, err := s.controller.Token(s.ctx, s.req)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
	}
	info, err := s.controller.cache.Lookup(s.ctx, s.req.Fingerprint())
	if err != nil || info == nil || info.AccessToken != access {
		return token, nil
	}
	if info.TokenType != "" {
		token.TokenType = info.TokenType
	}
	if info.Expires != nil {
		token.Expiry = time.UnixMilli(int64(*info.Expires))
	}
	return token, nil
}
