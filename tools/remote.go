package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/effective-security/mcphub/registry"
)

// Caller dispatches a tool call to a named server. Implemented by the
// registry and the service facade.
type Caller interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any, identity string) (any, error)
}

// Remote adapts one remotely hosted tool to the ITool interface. The caller
// identity is taken from the context, see WithIdentity.
type Remote struct {
	caller Caller
	info   registry.ToolInfo
}

// NewRemote wraps a discovered tool descriptor.
func NewRemote(caller Caller, info registry.ToolInfo) *Remote {
	return &Remote{
		caller: caller,
		info:   info,
	}
}

// Name implements ITool.
func (t *Remote) Name() string {
	return t.info.Name
}

// Description implements ITool.
func (t *Remote) Description() string {
	return t.info.Description
}

// Parameters implements ITool.
func (t *Remote) Parameters() any {
	return t.info.InputSchema
}

// Call implements ITool. The input is a JSON object of tool arguments; the
// result is re-encoded to JSON for the agent.
func (t *Remote) Call(ctx context.Context, input string) (string, error) {
	args := map[string]any{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", errors.Wrap(err, "failed to parse tool input")
		}
	}

	res, err := t.caller.CallTool(ctx, t.info.Server, t.info.Name, args, IdentityFromContext(ctx))
	if err != nil {
		return "", err
	}

	if s, ok := res.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode tool result")
	}
	return string(data), nil
}
