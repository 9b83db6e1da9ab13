// Package probe checks an access token by calling a protected endpoint with it.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-training/oauth2-implicit/pkg/core"

	"golang.org/x/oauth2"
)

// DefaultURL echoes the request back, including the Authorization header.
const DefaultURL = "https://httpbin.org/anything"

// Response represents the structure of the response from httpbin.org/anything.
type Response struct {
	Args    map[string]any    `json:"args"`
	Headers map[string]string `json:"headers"`
}

// Do sends a GET request to target with the token from ts in the Authorization
// header and message as a query parameter. Returns the parsed response or an error.
func Do(ctx context.Context, ts oauth2.TokenSource, target, message string) (*Response, error) {
	logger := core.LoggerFromCtx(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	query := req.URL.Query()
	query.Add("message", message)
	req.URL.RawQuery = query.Encode()

	resp, err := oauth2.NewClient(ctx, ts).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	// Check HTTP status code, return error if not 2xx
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http request failed: status %d %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var r *Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	logger.Debug("Probe request succeeded", "url", target, "status", resp.StatusCode)
	return r, nil
}
