package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/mcphub/config"
	"github.com/effective-security/mcphub/errdefs"
	"github.com/effective-security/mcphub/service"
)

// toolHandler produces the tools/call result for one request.
type toolHandler func(tool string, args map[string]any) (text string, isError bool)

func newServer(t *testing.T, tools []string, onCall toolHandler) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Method string `json:"method"`
			Params struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "initialize":
			result = map[string]any{
				"serverInfo": map[string]any{"name": "test", "version": "1.0"},
			}
		case "tools/list":
			list := make([]any, 0, len(tools))
			for _, name := range tools {
				list = append(list, map[string]any{"name": name, "description": name})
			}
			result = map[string]any{"tools": list}
		case "tools/call":
			text, isError := onCall(req.Params.Name, req.Params.Arguments)
			result = map[string]any{
				"content": []any{map[string]any{"type": "text", "text": text}},
				"isError": isError,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func echoHandler(tool string, args map[string]any) (string, bool) {
	data, _ := json.Marshal(map[string]any{"tool": tool, "args": args})
	return string(data), false
}

func newFacade(t *testing.T, srv *httptest.Server) *service.Facade {
	f := service.New(&config.Config{
		Servers: []*config.Server{
			{Name: "test", Endpoint: srv.URL, APIKey: "key"},
		},
	})
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func Test_AvailableTools(t *testing.T) {
	srv := newServer(t, []string{"get_mails", "send_mail"}, echoHandler)
	f := newFacade(t, srv)

	tools, err := f.AvailableTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "test", tools[0].Server)
}

func Test_CallTool(t *testing.T) {
	srv := newServer(t, []string{"get_mails"}, echoHandler)
	f := newFacade(t, srv)

	res, err := f.CallTool(context.Background(), "test", "get_mails",
		map[string]any{"subject": "hi"}, "alice")
	require.NoError(t, err)

	payload, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "get_mails", payload["tool"])
}

func Test_CallTool_UnknownServer(t *testing.T) {
	srv := newServer(t, nil, echoHandler)
	f := newFacade(t, srv)

	_, err := f.CallTool(context.Background(), "nope", "get_mails", nil, "alice")
	require.Error(t, err)
	assert.True(t, errdefs.IsClientNotFound(err))
}

func Test_CallTool_PassThrough(t *testing.T) {
	srv := newServer(t, []string{"get_mails"}, func(tool string, args map[string]any) (string, bool) {
		return `{"error_type":"FORBIDDEN","message":"denied"}`, true
	})
	f := newFacade(t, srv)

	_, err := f.CallTool(context.Background(), "test", "get_mails", nil, "alice")
	require.Error(t, err)

	// the authorization fault reaches the caller unwrapped
	var ae *errdefs.AuthorizationError
	require.True(t, errors.As(err, &ae))
	var te *errdefs.ToolError
	assert.False(t, errors.As(err, &te))
}

func Test_CallTool_WrapsOtherFaults(t *testing.T) {
	srv := newServer(t, []string{"get_mails"}, func(tool string, args map[string]any) (string, bool) {
		return "something broke", true
	})
	f := newFacade(t, srv)

	_, err := f.CallTool(context.Background(), "test", "get_mails", nil, "alice")
	require.Error(t, err)

	var te *errdefs.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "get_mails", te.Tool)
}

func Test_CallToolWithValidation(t *testing.T) {
	var got map[string]any
	srv := newServer(t, []string{"get_web_search_data"}, func(tool string, args map[string]any) (string, bool) {
		got = args
		return `{"ok":true}`, false
	})
	f := newFacade(t, srv)

	_, err := f.CallToolWithValidation(context.Background(), "test", "get_web_search_data",
		map[string]any{"query": "golang", "junk": "dropped"}, "alice")
	require.NoError(t, err)

	// unknown keys dropped, defaults applied before dispatch
	assert.Equal(t, "golang", got["query"])
	assert.NotContains(t, got, "junk")
	assert.EqualValues(t, 5, got["max_results"])
}

func Test_CallToolWithValidation_MissingRequired(t *testing.T) {
	srv := newServer(t, []string{"send_mail"}, echoHandler)
	f := newFacade(t, srv)

	_, err := f.CallToolWithValidation(context.Background(), "test", "send_mail",
		map[string]any{"to": "a@example.com"}, "alice")
	require.Error(t, err)

	var te *errdefs.ToolError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "missing required arguments")
}

func Test_CallToolWithValidation_UnknownToolPassThrough(t *testing.T) {
	var got map[string]any
	srv := newServer(t, []string{"custom_tool"}, func(tool string, args map[string]any) (string, bool) {
		got = args
		return `{"ok":true}`, false
	})
	f := newFacade(t, srv)

	_, err := f.CallToolWithValidation(context.Background(), "test", "custom_tool",
		map[string]any{"whatever": "stays"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "stays", got["whatever"])
}

func Test_ClientScope(t *testing.T) {
	srv := newServer(t, []string{"get_mails", "send_mail"}, echoHandler)
	f := newFacade(t, srv)

	scope, err := f.ClientScope(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"get_mails", "send_mail"}, scope)

	scope, err = f.ClientScope(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, scope)
}

func Test_LazyInitialization(t *testing.T) {
	var initCount int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result any
		switch req.Method {
		case "initialize":
			mu.Lock()
			initCount++
			mu.Unlock()
			result = map[string]any{"serverInfo": map[string]any{"name": "t", "version": "1"}}
		case "tools/list":
			result = map[string]any{"tools": []any{}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)

	f := newFacade(t, srv)
	ctx := context.Background()

	mu.Lock()
	before := initCount
	mu.Unlock()
	assert.Zero(t, before, "construction must not touch the network")

	_, err := f.AvailableTools(ctx)
	require.NoError(t, err)
	_, err = f.AvailableTools(ctx)
	require.NoError(t, err)

	mu.Lock()
	after := initCount
	mu.Unlock()
	assert.Equal(t, 1, after)

	// Close resets; next use re-initializes
	require.NoError(t, f.Close())
	_, err = f.AvailableTools(ctx)
	require.NoError(t, err)

	mu.Lock()
	final := initCount
	mu.Unlock()
	assert.Equal(t, 2, final)
}
