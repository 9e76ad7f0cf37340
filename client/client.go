// Package client implements a connection to one remote capability server:
// the initialize handshake, tool discovery, and tool invocation with the
// retry and step-up authentication policy.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"

	"github.com/effective-security/mcphub/codec"
	"github.com/effective-security/mcphub/config"
	"github.com/effective-security/mcphub/errdefs"
	"github.com/effective-security/mcphub/pkg/metricskey"
	"github.com/effective-security/mcphub/stepup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "client")

// DefaultBaseDelay is the unit of the linear backoff between transient
// retry attempts.
const DefaultBaseDelay = time.Second

// Tool describes one remote tool as reported by discovery.
type Tool struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
}

// ServerInfo is the remote server identity returned by the handshake.
type ServerInfo struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Capabilities map[string]any `json:"capabilities"`
}

// CallResult is the normalized outcome of a tool call, extracted from the
// first content block of the response.
type CallResult struct {
	Payload      any
	IsError      bool
	ErrorKind    string
	ErrorMessage string
}

// Client owns one connection to one remote capability server. The handshake
// runs exactly once, lazily; the tool catalog is replaced wholesale by each
// successful discovery and may be read concurrently.
type Client struct {
	cfg          *config.Server
	httpClient   *http.Client
	stepUp       stepup.Strategy
	stepUpBudget int
	baseDelay    time.Duration

	handshakeMu sync.Mutex

	mu          sync.RWMutex
	initialized bool
	serverInfo  *ServerInfo
	tools       []Tool
}

// New creates a client for the given server entry. Step-up challenges fail
// immediately until a strategy is provided with WithStepUp.
func New(cfg *config.Server) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		stepUp:       stepup.Disabled(),
		stepUpBudget: config.DefaultStepUpMaxRetries,
		baseDelay:    DefaultBaseDelay,
	}
}

// WithHTTPClient overrides the HTTP client, keeping the configured
// per-request timeout the caller set on it.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithStepUp sets the step-up authentication strategy and its round budget.
func (c *Client) WithStepUp(s stepup.Strategy, budget int) *Client {
	c.stepUp = s
	if budget > 0 {
		c.stepUpBudget = budget
	}
	return c
}

// WithBaseDelay overrides the linear backoff unit.
func (c *Client) WithBaseDelay(d time.Duration) *Client {
	c.baseDelay = d
	return c
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// headers builds a fresh header set for one request attempt. Called again to
// refresh headers after an unauthorized response. The identity header is
// distinct from the credential header so the remote server can apply
// per-user authorization.
func (c *Client) headers(identity string) map[string]string {
	h := map[string]string{
		"Content-Type":              "application/json",
		"Accept":                    codec.AcceptMediaTypes,
		codec.HeaderProtocolVersion: codec.ProtocolVersion,
		codec.HeaderIdentity:        values.StringsCoalesce(identity, codec.DefaultIdentity),
	}
	if c.cfg.APIKey != "" {
		name := values.StringsCoalesce(c.cfg.APIKeyHeader, codec.HeaderAPIKey)
		h[name] = c.cfg.APIKey
	}
	return h
}

type initializeResult struct {
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Capabilities map[string]any `json:"capabilities"`
}

// Handshake issues the initialize call once and caches the server info.
// Calling it on an already-initialized client returns the cached info
// without a network call.
func (c *Client) Handshake(ctx context.Context) (*ServerInfo, error) {
	c.mu.RLock()
	if c.initialized {
		info := c.serverInfo
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	c.handshakeMu.Lock()
	defer c.handshakeMu.Unlock()

	// Another caller may have completed the handshake while we waited.
	c.mu.RLock()
	if c.initialized {
		info := c.serverInfo
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	started := time.Now()
	defer metricskey.PerfHandshake.MeasureSince(started, c.cfg.Name)

	env := codec.NewEnvelope(codec.MethodInitialize, nil)
	raw, err := c.roundTrip(ctx, env, "")
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "handshake",
			"server", c.cfg.Name,
			"err", err.Error(),
		)
		return nil, errdefs.NewInitializationError(c.cfg.Name, err)
	}

	var res initializeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errdefs.NewInitializationError(c.cfg.Name, errors.Wrap(err, "failed to parse initialize result"))
	}

	info := &ServerInfo{
		Name:         values.StringsCoalesce(res.ServerInfo.Name, "Unknown"),
		Version:      values.StringsCoalesce(res.ServerInfo.Version, "Unknown"),
		Capabilities: res.Capabilities,
	}

	c.mu.Lock()
	c.serverInfo = info
	c.initialized = true
	c.mu.Unlock()

	logger.ContextKV(ctx, xlog.DEBUG,
		"reason", "handshake_complete",
		"server", c.cfg.Name,
		"remote_name", info.Name,
		"remote_version", info.Version,
	)
	return info, nil
}

type listToolsResult struct {
	Tools []Tool `json:"tools"`
}

// DiscoverTools refreshes the tool catalog. A successful call replaces the
// catalog wholesale; a failed call keeps the previous catalog and is not an
// error, so one server's discovery hiccup never blocks unrelated calls.
// The returned slice is the catalog after the call.
func (c *Client) DiscoverTools(ctx context.Context) []Tool {
	if _, err := c.Handshake(ctx); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "discover_handshake",
			"server", c.cfg.Name,
			"err", err.Error(),
		)
		return c.Tools()
	}

	env := codec.NewEnvelope(codec.MethodListTools, nil)
	raw, err := c.roundTrip(ctx, env, "")
	if err != nil {
		metricskey.StatsDiscoveryFailed.IncrCounter(1, c.cfg.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "list_tools",
			"server", c.cfg.Name,
			"err", err.Error(),
		)
		return c.Tools()
	}

	var res listToolsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		metricskey.StatsDiscoveryFailed.IncrCounter(1, c.cfg.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "parse_tools",
			"server", c.cfg.Name,
			"err", err.Error(),
		)
		return c.Tools()
	}

	c.mu.Lock()
	c.tools = res.Tools
	c.mu.Unlock()

	logger.ContextKV(ctx, xlog.DEBUG,
		"reason", "tools_discovered",
		"server", c.cfg.Name,
		"count", len(res.Tools),
	)
	return c.Tools()
}

// Tools returns a snapshot of the cached tool catalog.
func (c *Client) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// ToolNames returns the names of the cached tools, used for access scoping.
func (c *Client) ToolNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tools))
	for _, t := range c.tools {
		names = append(names, t.Name)
	}
	return names
}

// Tool returns the cached descriptor by name.
func (c *Client) Tool(name string) (*Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.tools {
		if c.tools[i].Name == name {
			t := c.tools[i]
			return &t, true
		}
	}
	return nil, false
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type contentBlock struct {
	Type string          `json:"type,omitempty"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type callToolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

type remoteToolError struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// CallTool invokes the named tool with the given arguments, attaching the
// caller identity for per-user authorization on the remote side. The
// returned payload is the first content block of the response, JSON-parsed
// when it parses.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any, identity string) (any, error) {
	if _, err := c.Handshake(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	defer metricskey.PerfToolCall.MeasureSince(started, c.cfg.Name, name)

	if args == nil {
		args = map[string]any{}
	}
	env := codec.NewEnvelope(codec.MethodCallTool, &callToolParams{
		Name:      name,
		Arguments: args,
	})

	raw, err := c.roundTrip(ctx, env, identity)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, c.cfg.Name, name)
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "call_tool",
			"server", c.cfg.Name,
			"tool", name,
			"err", err.Error(),
		)
		return nil, err
	}

	res, err := extractCallResult(raw)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, c.cfg.Name, name)
		return nil, err
	}
	if res.IsError {
		metricskey.StatsToolCallsFailed.IncrCounter(1, c.cfg.Name, name)
		switch res.ErrorKind {
		case "UNAUTHORIZED", "FORBIDDEN":
			return nil, errdefs.NewAuthorizationError(res.ErrorKind, res.ErrorMessage)
		default:
			return nil, errdefs.NewBusinessError(res.ErrorKind, res.ErrorMessage)
		}
	}

	// A payload shaped like an error without the isError flag is reported by
	// some tools on internal faults; surface it in the log, return as data.
	if m, ok := res.Payload.(map[string]any); ok {
		if et, ok := m["error_type"].(string); ok {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "tool_error_payload",
				"server", c.cfg.Name,
				"tool", name,
				"error_type", et,
			)
		}
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, c.cfg.Name, name)
	return res.Payload, nil
}

// extractCallResult pulls the payload out of the first content block of a
// tools/call result.
func extractCallResult(raw json.RawMessage) (*CallResult, error) {
	var res callToolResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, errors.Wrap(err, "failed to parse tool call result")
	}
	if len(res.Content) == 0 {
		return nil, errors.New("tool call result has no content")
	}

	first := res.Content[0]
	var text string
	switch {
	case first.Text != "":
		text = first.Text
	case len(first.Data) > 0:
		text = string(first.Data)
	default:
		return nil, errors.New("tool call result content block is empty")
	}

	out := &CallResult{
		Payload: text,
		IsError: res.IsError,
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		out.Payload = parsed
	}

	if res.IsError {
		var rte remoteToolError
		if err := json.Unmarshal([]byte(text), &rte); err != nil || rte.ErrorType == "" {
			return nil, errors.Errorf("tool returned an error: %s", text)
		}
		out.ErrorKind = rte.ErrorType
		out.ErrorMessage = rte.Message
	}
	return out, nil
}

// Close releases pooled connections. Safe to call more than once.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
