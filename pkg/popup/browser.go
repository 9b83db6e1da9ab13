// Package popup shows the provider's authorization page to the user and
// carries the redirect fragment back to the auth controller.
package popup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/go-training/oauth2-implicit/pkg/core"
)

// BrowserDriver opens authorization URLs in the system browser.
// Desktop browsers pick their own window size, so height and width are only logged.
type BrowserDriver struct {
	open func(url string) error
	out  io.Writer
}

// NewBrowserDriver creates a BrowserDriver. If the browser cannot be started the
// URL is written to out so the user can open it by hand; a nil out means stderr.
func NewBrowserDriver(out io.Writer) *BrowserDriver {
	if out == nil {
		out = os.Stderr
	}
	return &BrowserDriver{open: openBrowser, out: out}
}

// Open starts the browser on authURL.
func (d *BrowserDriver) Open(ctx context.Context, authURL string, height, width int) error {
	logger := core.LoggerFromCtx(ctx)
	logger.Debug("Opening browser to authorization URL", "url", authURL, "height", height, "width", width)

	if err := d.open(authURL); err != nil {
		logger.Warn("Failed to open browser", "err", err)
		if _, werr := fmt.Fprintf(d.out, "Open the following URL in your browser:\n%s\n", authURL); werr != nil {
			return fmt.Errorf("failed to open browser: %w", errors.Join(err, werr))
		}
	}
	return nil
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return errors.New("unsupported platform")
	}
}
