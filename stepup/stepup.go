// Package stepup isolates the interactive re-authentication flow triggered
// by an HTTP 403 step-up challenge behind an injectable strategy, so
// non-interactive deployments can supply an automated or failing strategy
// instead of a blocking human prompt.
package stepup

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/pkg/browser"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "stepup")

// Strategy performs the out-of-band re-authentication action for one step-up
// round. Challenge blocks until the action is believed complete, the bounded
// wait elapses, or ctx is cancelled; a nil return means the caller should
// retry the original request.
type Strategy interface {
	Challenge(ctx context.Context, server string) error
}

// BrowserPrompt opens a redirect URL for a human to complete re-auth, then
// waits for external confirmation or for the wait window to elapse before
// allowing a retry.
type BrowserPrompt struct {
	redirectURL string
	wait        time.Duration
	confirm     <-chan struct{}
	openURL     func(string) error
}

// NewBrowserPrompt returns a strategy that opens redirectURL in the local
// browser. confirm may be nil; when provided, a receive on it ends the wait
// early (the human signalling completion).
func NewBrowserPrompt(redirectURL string, wait time.Duration, confirm <-chan struct{}) *BrowserPrompt {
	return &BrowserPrompt{
		redirectURL: redirectURL,
		wait:        wait,
		confirm:     confirm,
		openURL:     browser.OpenURL,
	}
}

// WithOpener overrides how the URL is opened. Used in tests.
func (s *BrowserPrompt) WithOpener(open func(string) error) *BrowserPrompt {
	s.openURL = open
	return s
}

// Challenge opens the redirect URL and waits for confirmation or timeout.
func (s *BrowserPrompt) Challenge(ctx context.Context, server string) error {
	if s.redirectURL == "" {
		return errors.New("re-authentication required, but no redirect URL is configured")
	}

	logger.ContextKV(ctx, xlog.INFO,
		"reason", "step_up_challenge",
		"server", server,
		"redirect_url", s.redirectURL,
		"wait", s.wait.String(),
	)
	if err := s.openURL(s.redirectURL); err != nil {
		// The URL is still logged above; the human can follow it manually.
		logger.ContextKV(ctx, xlog.WARNING, "reason", "open_url", "err", err.Error())
	}

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case <-s.confirm:
		logger.ContextKV(ctx, xlog.INFO, "reason", "step_up_confirmed", "server", server)
		return nil
	case <-timer.C:
		logger.ContextKV(ctx, xlog.INFO, "reason", "step_up_wait_elapsed", "server", server)
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "step-up wait cancelled")
	}
}

type disabled struct{}

// Disabled returns a strategy for non-interactive deployments: every
// challenge fails immediately.
func Disabled() Strategy {
	return disabled{}
}

func (disabled) Challenge(ctx context.Context, server string) error {
	return errors.Errorf("re-authentication required for server %q, but step-up is disabled", server)
}
