// Package scopestore persists per-server tool-scope snapshots: the list of
// tool names discovered on each registered server. Callers use snapshots for
// access scoping; the registry refreshes them after each discovery.
package scopestore

import (
	"context"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "scopestore")

// Store keeps tool-scope snapshots per server.
type Store interface {
	// SaveScope replaces the snapshot for the named server.
	SaveScope(ctx context.Context, server string, tools []string) error
	// GetScope returns the snapshot for the named server, nil when absent.
	GetScope(ctx context.Context, server string) ([]string, error)
	// ListServers returns the servers with a stored snapshot.
	ListServers(ctx context.Context) ([]string, error)
	// Reset removes the snapshot for the named server.
	Reset(ctx context.Context, server string) error
}
