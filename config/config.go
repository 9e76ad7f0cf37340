// Package config describes the remote capability servers this process may
// connect to. The configuration is loaded once at registry construction and
// is immutable thereafter.
package config

import (
	"time"

	"github.com/effective-security/x/configloader"
)

// Defaults applied when a server entry leaves the field unset.
const (
	DefaultTimeoutSeconds = 30
	DefaultRetryAttempts  = 3

	DefaultStepUpWaitSeconds = 15
	DefaultStepUpMaxRetries  = 5
)

// Config is the top-level configuration for the client hub.
type Config struct {
	Servers []*Server `json:"servers" yaml:"servers"`
	StepUp  StepUp    `json:"step_up" yaml:"step_up"`
}

// Server describes one remote capability server endpoint.
type Server struct {
	Name     string `json:"name" yaml:"name"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// APIKeyHeader overrides the header name used to send the credential.
	APIKeyHeader string `json:"api_key_header,omitempty" yaml:"api_key_header,omitempty"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// RetryAttempts is the call-level attempt budget.
	RetryAttempts int `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
}

// RequestTimeout returns the per-request timeout, defaulted.
func (s *Server) RequestTimeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// Attempts returns the call-level attempt budget, defaulted.
func (s *Server) Attempts() int {
	if s.RetryAttempts <= 0 {
		return DefaultRetryAttempts
	}
	return s.RetryAttempts
}

// StepUp configures the interactive re-authentication flow triggered by an
// HTTP 403 step-up challenge.
type StepUp struct {
	// RedirectURL is opened out-of-band for the human to complete re-auth.
	// When empty, step-up challenges fail immediately.
	RedirectURL string `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
	// WaitSeconds bounds the wait for external confirmation before a retry.
	WaitSeconds int `json:"wait_seconds,omitempty" yaml:"wait_seconds,omitempty"`
	// MaxRetries bounds the number of step-up rounds, independent of the
	// call-level attempt budget.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// Wait returns the bounded confirmation wait, defaulted.
func (s *StepUp) Wait() time.Duration {
	if s.WaitSeconds <= 0 {
		return DefaultStepUpWaitSeconds * time.Second
	}
	return time.Duration(s.WaitSeconds) * time.Second
}

// Budget returns the step-up round budget, defaulted.
func (s *StepUp) Budget() int {
	if s.MaxRetries <= 0 {
		return DefaultStepUpMaxRetries
	}
	return s.MaxRetries
}

// Load reads the configuration from file, expanding environment variables.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
