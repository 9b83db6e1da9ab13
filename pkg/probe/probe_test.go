package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func echoServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		args := map[string]any{}
		for k, v := range r.URL.Query() {
			args[k] = v[0]
		}
		_ = json.NewEncoder(w).Encode(Response{
			Args:    args,
			Headers: map[string]string{"Authorization": r.Header.Get("Authorization")},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDo(t *testing.T) {
	srv := echoServer(t, http.StatusOK)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"})

	resp, err := Do(context.Background(), ts, srv.URL, "hello")
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got := resp.Headers["Authorization"]; got != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", got)
	}
	if got := resp.Args["message"]; got != "hello" {
		t.Errorf("message = %v, want hello", got)
	}
}

func TestDo_StatusError(t *testing.T) {
	srv := echoServer(t, http.StatusUnauthorized)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})

	_, err := Do(context.Background(), ts, srv.URL, "hello")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Do() error = %v, want status 401", err)
	}
}
