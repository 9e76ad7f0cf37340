package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/effective-security/mcphub/codec"
	"github.com/effective-security/mcphub/errdefs"
	"github.com/effective-security/mcphub/pkg/metricskey"
)

// callState is the explicit state of one logical call through the retry and
// step-up recovery machine.
type callState int

const (
	stateAttempting callState = iota
	stateRetrying
	stateAwaitingStepUp
	stateSucceeded
	stateFailed
)

// outcome classifies the result of one request attempt.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeUnauthorized // 401 or RPC error naming UNAUTHORIZED: refresh headers, retry now
	outcomeStepUp       // 403: step-up authentication challenge
	outcomeTransient    // network fault or 5xx: backoff and retry
	outcomeTerminal     // anything else ends the call
)

// transportError is a low-level fault from the HTTP round trip.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// statusError is a non-200 HTTP response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

func classify(err error) outcome {
	if err == nil {
		return outcomeOK
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusUnauthorized:
			return outcomeUnauthorized
		case se.Status == http.StatusForbidden:
			return outcomeStepUp
		case se.Status >= 500:
			return outcomeTransient
		default:
			return outcomeTerminal
		}
	}

	var te *transportError
	if errors.As(err, &te) {
		return outcomeTransient
	}

	var rpcErr *codec.RPCError
	if errors.As(err, &rpcErr) && strings.Contains(rpcErr.Message, "UNAUTHORIZED") {
		return outcomeUnauthorized
	}

	return outcomeTerminal
}

// roundTrip executes one logical call under the retry policy. The envelope
// is marshalled once, so every attempt carries the same request id.
func (c *Client) roundTrip(ctx context.Context, env *codec.Envelope, identity string) (json.RawMessage, error) {
	payload, err := env.Marshal()
	if err != nil {
		return nil, err
	}

	attempts := c.cfg.Attempts()
	headers := c.headers(identity)

	var (
		result  json.RawMessage
		lastErr error
		attempt int
		stepUps int
	)

	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			result, lastErr = c.post(ctx, payload, headers)
			switch classify(lastErr) {
			case outcomeOK:
				state = stateSucceeded

			case outcomeUnauthorized:
				attempt++
				if attempt >= attempts {
					state = stateFailed
					break
				}
				// Refresh headers in place and retry without backoff; this
				// consumes the attempt budget, not the step-up budget.
				headers = c.headers(identity)
				metricskey.StatsAuthRefreshes.IncrCounter(1, c.cfg.Name)
				logger.ContextKV(ctx, xlog.WARNING,
					"reason", "unauthorized_retry",
					"server", c.cfg.Name,
					"attempt", attempt,
				)

			case outcomeStepUp:
				state = stateAwaitingStepUp

			case outcomeTransient:
				attempt++
				if attempt >= attempts {
					state = stateFailed
					break
				}
				state = stateRetrying

			default:
				state = stateFailed
			}

		case stateRetrying:
			metricskey.StatsCallRetries.IncrCounter(1, c.cfg.Name)
			delay := time.Duration(attempt) * c.baseDelay
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "retry",
				"server", c.cfg.Name,
				"method", env.Method,
				"attempt", attempt,
				"delay", delay.String(),
				"err", lastErr.Error(),
			)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
				state = stateAttempting
			case <-ctx.Done():
				timer.Stop()
				lastErr = errors.Wrap(ctx.Err(), "call cancelled during backoff")
				state = stateFailed
			}

		case stateAwaitingStepUp:
			stepUps++
			if stepUps > c.stepUpBudget {
				lastErr = errdefs.NewAuthenticationError(c.cfg.Name,
					errors.Errorf("step-up budget exhausted after %d rounds", c.stepUpBudget))
				state = stateFailed
				break
			}
			metricskey.StatsStepUpChallenges.IncrCounter(1, c.cfg.Name)
			logger.ContextKV(ctx, xlog.INFO,
				"reason", "step_up",
				"server", c.cfg.Name,
				"round", stepUps,
				"budget", c.stepUpBudget,
			)
			if err := c.stepUp.Challenge(ctx, c.cfg.Name); err != nil {
				lastErr = errdefs.NewAuthenticationError(c.cfg.Name, err)
				state = stateFailed
				break
			}
			state = stateAttempting

		case stateSucceeded:
			return result, nil

		case stateFailed:
			return nil, c.finalError(lastErr)
		}
	}
}

// finalError maps the terminal fault of an exhausted call to the caller
// taxonomy; pass-through and authentication kinds are preserved.
func (c *Client) finalError(err error) error {
	if err == nil {
		return errors.New("call failed")
	}
	if errdefs.IsPassThrough(err) || errdefs.IsAuthentication(err) {
		return err
	}
	var te *transportError
	if errors.As(err, &te) {
		return errdefs.NewNetworkError(te.err)
	}
	return err
}

// post performs a single HTTP POST attempt and decodes the response body.
func (c *Client) post(ctx context.Context, payload []byte, headers map[string]string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Status: resp.StatusCode, Body: string(body)}
	}

	return codec.Decode(resp.Header.Get("Content-Type"), body)
}
