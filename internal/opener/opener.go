// Package opener hands URLs to the operating system's browser.
package opener

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/pkg/browser"
)

var ErrUnsupportedURL = errors.New("url cannot be opened")

// Opener is what checkout needs to send the user to a payment page.
type Opener interface {
	CanOpen(rawURL string) bool
	Open(rawURL string) error
}

// Browser opens URLs with the system browser.
type Browser struct {
	open func(string) error
}

func NewBrowser() *Browser {
	// keep the launched browser's output off our stdout/stderr
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &Browser{open: browser.OpenURL}
}

// CanOpen accepts absolute http and https URLs with a host.
func (b *Browser) CanOpen(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (b *Browser) Open(rawURL string) error {
	if !b.CanOpen(rawURL) {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	if err := b.open(rawURL); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// Disabled never opens anything; for headless hosts where the URL is only
// returned to the caller.
type Disabled struct{}

func (Disabled) CanOpen(string) bool { return false }
func (Disabled) Open(rawURL string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
}
