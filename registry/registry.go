// Package registry holds a named collection of single-server clients built
// from configuration and exposes a uniform call surface across all of them.
// A Registry is an explicitly constructed value with a construct →
// Initialize → CloseAll lifecycle; callers receive it by reference instead
// of importing process-wide state.
package registry

import (
	"context"
	"net/http"
	"sync"

	"github.com/effective-security/xlog"

	"github.com/effective-security/mcphub/client"
	"github.com/effective-security/mcphub/config"
	"github.com/effective-security/mcphub/errdefs"
	"github.com/effective-security/mcphub/scopestore"
	"github.com/effective-security/mcphub/stepup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "registry")

// ToolInfo is a flattened tool descriptor tagged with its owning server.
type ToolInfo struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
	Server       string         `json:"server"`
	Provider     string         `json:"provider"`
}

// Provider tag attached to every tool surfaced by this registry.
const Provider = "mcp"

// Registry manages the set of registered single-server clients.
type Registry struct {
	httpClient *http.Client
	stepUp     stepup.Strategy
	stepUpCfg  *config.StepUp
	scopes     scopestore.Store

	mu          sync.RWMutex
	clients     map[string]*client.Client
	initialized bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		clients: make(map[string]*client.Client),
	}
}

// WithHTTPClient shares one HTTP client across all registered clients.
func (r *Registry) WithHTTPClient(hc *http.Client) *Registry {
	r.httpClient = hc
	return r
}

// WithStepUp sets the step-up strategy handed to every client; cfg supplies
// the round budget.
func (r *Registry) WithStepUp(s stepup.Strategy, cfg *config.StepUp) *Registry {
	r.stepUp = s
	r.stepUpCfg = cfg
	return r
}

// WithScopeStore enables scope snapshots after discovery.
func (r *Registry) WithScopeStore(store scopestore.Store) *Registry {
	r.scopes = store
	return r
}

// Initialize builds one client per configured server entry. Entries missing
// an endpoint or a credential are skipped with a warning. A handshake
// failure isolates that server: it is closed and absent from later results,
// other servers are unaffected. Calling Initialize on an already-initialized
// registry is a no-op.
func (r *Registry) Initialize(ctx context.Context, servers []*config.Server) error {
	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "already_initialized")
		return nil
	}
	r.initialized = true
	r.mu.Unlock()

	for _, cfg := range servers {
		if cfg.Endpoint == "" || cfg.APIKey == "" {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "incomplete_server_config",
				"server", cfg.Name,
				"has_endpoint", cfg.Endpoint != "",
				"has_api_key", cfg.APIKey != "",
			)
			continue
		}
		r.addClient(ctx, cfg)
	}
	return nil
}

func (r *Registry) addClient(ctx context.Context, cfg *config.Server) {
	c := client.New(cfg)
	if r.httpClient != nil {
		c.WithHTTPClient(r.httpClient)
	}
	if r.stepUp != nil {
		budget := config.DefaultStepUpMaxRetries
		if r.stepUpCfg != nil {
			budget = r.stepUpCfg.Budget()
		}
		c.WithStepUp(r.stepUp, budget)
	}

	if _, err := c.Handshake(ctx); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "client_init",
			"server", cfg.Name,
			"err", err.Error(),
		)
		_ = c.Close()
		return
	}

	// Discovery is best-effort; a failure leaves the catalog empty and the
	// client still registered.
	tools := c.DiscoverTools(ctx)

	r.mu.Lock()
	r.clients[cfg.Name] = c
	r.mu.Unlock()

	r.saveScope(ctx, cfg.Name, c.ToolNames())

	logger.ContextKV(ctx, xlog.DEBUG,
		"reason", "client_registered",
		"server", cfg.Name,
		"tools", len(tools),
	)
}

func (r *Registry) saveScope(ctx context.Context, server string, tools []string) {
	if r.scopes == nil {
		return
	}
	if err := r.scopes.SaveScope(ctx, server, tools); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "save_scope",
			"server", server,
			"err", err.Error(),
		)
	}
}

// Client returns the registered client by server name.
func (r *Registry) Client(name string) (*client.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	if !ok {
		return nil, errdefs.NewClientError(name)
	}
	return c, nil
}

// CallTool invokes a tool on the named server.
func (r *Registry) CallTool(ctx context.Context, server, tool string, args map[string]any, identity string) (any, error) {
	c, err := r.Client(server)
	if err != nil {
		return nil, err
	}
	return c.CallTool(ctx, tool, args, identity)
}

// AllTools flattens every registered client's catalog, each entry tagged
// with its owning server name.
func (r *Registry) AllTools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []ToolInfo
	for name, c := range r.clients {
		for _, t := range c.Tools() {
			all = append(all, ToolInfo{
				Name:         t.Name,
				Description:  t.Description,
				InputSchema:  t.InputSchema,
				OutputSchema: t.OutputSchema,
				Server:       name,
				Provider:     Provider,
			})
		}
	}
	return all
}

// ClientScope returns the tool-name list for one server, used by callers for
// access scoping. Unknown servers yield an empty scope.
func (r *Registry) ClientScope(name string) []string {
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.ToolNames()
}

// RefreshScopes re-discovers tools on every registered client and saves
// fresh scope snapshots. Used by operators after remote catalogs change.
func (r *Registry) RefreshScopes(ctx context.Context) map[string][]string {
	r.mu.RLock()
	clients := make(map[string]*client.Client, len(r.clients))
	for name, c := range r.clients {
		clients[name] = c
	}
	r.mu.RUnlock()

	scopes := make(map[string][]string, len(clients))
	for name, c := range clients {
		c.DiscoverTools(ctx)
		names := c.ToolNames()
		scopes[name] = names
		r.saveScope(ctx, name, names)
	}
	return scopes
}

// CloseAll closes every registered client and resets the registry to the
// uninitialized state.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.clients {
		if err := c.Close(); err != nil {
			logger.KV(xlog.WARNING, "reason", "close_client", "server", name, "err", err.Error())
		}
	}
	r.clients = make(map[string]*client.Client)
	r.initialized = false
	return nil
}
