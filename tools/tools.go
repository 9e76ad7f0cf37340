// Package tools defines the tool abstraction used by agents and an adapter
// that surfaces remotely hosted tools behind it.
package tools

import (
	"context"
)

// ITool is a tool for an agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	Description() string
	// Parameters returns the parameters definition of the tool, to be used in the prompt.
	Parameters() any

	Call(context.Context, string) (string, error)
}

type contextKey int

const (
	keyIdentity contextKey = iota
)

// WithIdentity returns a new context carrying the caller identity forwarded
// with every remote tool call.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, keyIdentity, identity)
}

// IdentityFromContext returns the caller identity, empty when not set.
func IdentityFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyIdentity).(string)
	return id
}
