// Package service is the high-level entry point for remote tool access. It
// owns the registry lifecycle, initializing it lazily on first use, and
// shields callers from transport details: every failure surfaces as one of
// the errdefs types.
package service

import (
	"context"
	"net/http"
	"sync"

	"github.com/effective-security/xlog"

	"github.com/effective-security/mcphub/config"
	"github.com/effective-security/mcphub/errdefs"
	"github.com/effective-security/mcphub/registry"
	"github.com/effective-security/mcphub/scopestore"
	"github.com/effective-security/mcphub/stepup"
	"github.com/effective-security/mcphub/toolschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "service")

// Facade exposes discovery and invocation across all configured servers.
type Facade struct {
	cfg *config.Config
	reg *registry.Registry

	initMu      sync.Mutex
	initialized bool
}

// New creates a facade over the given configuration. The registry is not
// built until the first call that needs it.
func New(cfg *config.Config) *Facade {
	return &Facade{
		cfg: cfg,
		reg: registry.New(),
	}
}

// WithHTTPClient shares one HTTP client across all server clients.
func (f *Facade) WithHTTPClient(hc *http.Client) *Facade {
	f.reg.WithHTTPClient(hc)
	return f
}

// WithStepUp sets the strategy used to resolve step-up challenges.
func (f *Facade) WithStepUp(s stepup.Strategy) *Facade {
	f.reg.WithStepUp(s, &f.cfg.StepUp)
	return f
}

// WithScopeStore enables scope snapshots after discovery.
func (f *Facade) WithScopeStore(store scopestore.Store) *Facade {
	f.reg.WithScopeStore(store)
	return f
}

// Registry returns the underlying registry, initializing it on first use.
func (f *Facade) Registry(ctx context.Context) (*registry.Registry, error) {
	if err := f.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return f.reg, nil
}

func (f *Facade) ensureInitialized(ctx context.Context) error {
	f.initMu.Lock()
	defer f.initMu.Unlock()
	if f.initialized {
		return nil
	}

	if err := f.reg.Initialize(ctx, f.cfg.Servers); err != nil {
		return errdefs.NewInitializationError("registry", err)
	}
	f.initialized = true

	logger.ContextKV(ctx, xlog.INFO,
		"reason", "service_initialized",
		"servers", len(f.cfg.Servers),
	)
	return nil
}

// AvailableTools returns every discovered tool across all servers, each
// tagged with its owning server.
func (f *Facade) AvailableTools(ctx context.Context) ([]registry.ToolInfo, error) {
	if err := f.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return f.reg.AllTools(), nil
}

// CallTool invokes a tool on the named server. Authorization, business and
// authentication faults pass through unchanged; any other failure is wrapped
// as a ToolError so callers never see transport details.
func (f *Facade) CallTool(ctx context.Context, server, tool string, args map[string]any, identity string) (any, error) {
	if err := f.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	res, err := f.reg.CallTool(ctx, server, tool, args, identity)
	if err != nil {
		if errdefs.IsPassThrough(err) || errdefs.IsAuthentication(err) || errdefs.IsClientNotFound(err) {
			return nil, err
		}
		return nil, errdefs.NewToolError(tool, err)
	}
	return res, nil
}

// CallToolWithValidation normalizes args against the tool's registered
// schema before dispatch: unknown keys are dropped, defaults applied and
// required arguments enforced. Unknown tools pass their arguments through
// unchanged.
func (f *Facade) CallToolWithValidation(ctx context.Context, server, tool string, args map[string]any, identity string) (any, error) {
	normalized, err := toolschema.NormalizeArgs(tool, args)
	if err != nil {
		return nil, errdefs.NewToolError(tool, err)
	}
	return f.CallTool(ctx, server, tool, normalized, identity)
}

// ClientScope returns the discovered tool names for one server.
func (f *Facade) ClientScope(ctx context.Context, server string) ([]string, error) {
	if err := f.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return f.reg.ClientScope(server), nil
}

// Close shuts down every server client. The facade re-initializes on next
// use.
func (f *Facade) Close() error {
	f.initMu.Lock()
	defer f.initMu.Unlock()
	f.initialized = false
	return f.reg.CloseAll()
}
