// Package errdefs defines the error kinds surfaced by the mcphub client
// stack. Callers only ever see one of these kinds; raw transport and
// protocol errors are wrapped before they leave the facade.
package errdefs

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InitializationError indicates the handshake with a remote server failed
// or the server is unreachable.
type InitializationError struct {
	Server string
	Err    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed: server %q: %v", e.Server, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// NewInitializationError wraps err as an InitializationError for the named server.
func NewInitializationError(server string, err error) error {
	return &InitializationError{Server: server, Err: err}
}

// ClientError indicates the named server is not registered.
type ClientError struct {
	Server string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client not found: %q", e.Server)
}

// NewClientError returns a ClientError for the named server.
func NewClientError(server string) error {
	return &ClientError{Server: server}
}

// ToolError indicates a tool invocation failed after the attempt budget was
// exhausted, or a non-business protocol fault occurred.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool call failed: %q: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError wraps err as a ToolError for the named tool.
func NewToolError(tool string, err error) error {
	return &ToolError{Tool: tool, Err: err}
}

// AuthenticationError indicates the step-up authentication budget was
// exhausted without a successful re-auth.
type AuthenticationError struct {
	Server string
	Err    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: server %q: %v", e.Server, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NewAuthenticationError wraps err as an AuthenticationError for the named server.
func NewAuthenticationError(server string, err error) error {
	return &AuthenticationError{Server: server, Err: err}
}

// NetworkError indicates a low-level transport fault.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps err as a NetworkError.
func NewNetworkError(err error) error {
	return &NetworkError{Err: err}
}

// AuthorizationError is a caller-significant pass-through kind raised when a
// tool responds with error_type UNAUTHORIZED or FORBIDDEN. It is never
// retried and never reclassified.
type AuthorizationError struct {
	ErrorType string
	Message   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization denied: %s: %s", e.ErrorType, e.Message)
}

// NewAuthorizationError returns an AuthorizationError with the remote
// error_type and message.
func NewAuthorizationError(errorType, message string) error {
	return &AuthorizationError{ErrorType: errorType, Message: message}
}

// BusinessError is a caller-significant pass-through kind raised when a tool
// responds with any other error_type. It is never retried and never
// reclassified.
type BusinessError struct {
	ErrorType string
	Message   string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("business error: %s: %s", e.ErrorType, e.Message)
}

// NewBusinessError returns a BusinessError with the remote error_type and message.
func NewBusinessError(errorType, message string) error {
	return &BusinessError{ErrorType: errorType, Message: message}
}

// IsPassThrough reports whether err is one of the caller-significant kinds
// that must propagate unchanged through every layer.
func IsPassThrough(err error) bool {
	var authz *AuthorizationError
	var biz *BusinessError
	return errors.As(err, &authz) || errors.As(err, &biz)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var authz *AuthorizationError
	return errors.As(err, &authz)
}

// IsBusiness reports whether err is a BusinessError.
func IsBusiness(err error) bool {
	var biz *BusinessError
	return errors.As(err, &biz)
}

// IsAuthentication reports whether err is an AuthenticationError.
func IsAuthentication(err error) bool {
	var authn *AuthenticationError
	return errors.As(err, &authn)
}

// IsClientNotFound reports whether err is a ClientError.
func IsClientNotFound(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
