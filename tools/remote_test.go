package tools_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/mcphub/registry"
	"github.com/effective-security/mcphub/tools"
)

type fakeCaller struct {
	server   string
	tool     string
	args     map[string]any
	identity string

	result any
	err    error
}

func (c *fakeCaller) CallTool(ctx context.Context, server, tool string, args map[string]any, identity string) (any, error) {
	c.server = server
	c.tool = tool
	c.args = args
	c.identity = identity
	return c.result, c.err
}

func Test_Identity(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, tools.IdentityFromContext(ctx))

	ctx = tools.WithIdentity(ctx, "alice")
	assert.Equal(t, "alice", tools.IdentityFromContext(ctx))
}

func Test_Remote(t *testing.T) {
	caller := &fakeCaller{
		result: map[string]any{"mails": []any{"m1"}},
	}
	rt := tools.NewRemote(caller, registry.ToolInfo{
		Name:        "get_mails",
		Description: "list mailbox messages",
		InputSchema: map[string]any{"type": "object"},
		Server:      "mail",
	})

	assert.Equal(t, "get_mails", rt.Name())
	assert.Equal(t, "list mailbox messages", rt.Description())
	assert.Equal(t, map[string]any{"type": "object"}, rt.Parameters())

	ctx := tools.WithIdentity(context.Background(), "alice")
	out, err := rt.Call(ctx, `{"subject":"hi"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mails":["m1"]}`, out)

	assert.Equal(t, "mail", caller.server)
	assert.Equal(t, "get_mails", caller.tool)
	assert.Equal(t, map[string]any{"subject": "hi"}, caller.args)
	assert.Equal(t, "alice", caller.identity)
}

func Test_Remote_StringResult(t *testing.T) {
	caller := &fakeCaller{result: "plain text"}
	rt := tools.NewRemote(caller, registry.ToolInfo{Name: "t", Server: "s"})

	out, err := rt.Call(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
	assert.Empty(t, caller.args)
}

func Test_Remote_BadInput(t *testing.T) {
	caller := &fakeCaller{}
	rt := tools.NewRemote(caller, registry.ToolInfo{Name: "t", Server: "s"})

	_, err := rt.Call(context.Background(), "not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse tool input")
}

func Test_Remote_CallError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("boom")}
	rt := tools.NewRemote(caller, registry.ToolInfo{Name: "t", Server: "s"})

	_, err := rt.Call(context.Background(), "{}")
	assert.EqualError(t, err, "boom")
}
