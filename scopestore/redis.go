package scopestore

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps scope snapshots in Redis so multiple processes can
// share one view of the discovered tools. The keys namespace is organized as
// `/<prefix>/mcpscope/<server>`, holding a JSON-encoded list of tool names.

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) scopeKey(server string) string {
	return path.Join(m.prefix, "mcpscope", server)
}

func (m *redisStore) SaveScope(ctx context.Context, server string, tools []string) error {
	data, err := json.Marshal(tools)
	if err != nil {
		return errors.Wrap(err, "failed to marshal scope")
	}

	err = m.client.Set(ctx, m.scopeKey(server), data, 0).Err()
	if err != nil {
		return errors.Wrap(err, "failed to store scope in Redis")
	}
	return nil
}

func (m *redisStore) GetScope(ctx context.Context, server string) ([]string, error) {
	data, err := m.client.Get(ctx, m.scopeKey(server)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get scope from Redis")
	}

	var tools []string
	if err := json.Unmarshal([]byte(data), &tools); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal scope", "server", server, "err", err.Error())
		return nil, errors.Wrap(err, "failed to unmarshal scope")
	}
	return tools, nil
}

func (m *redisStore) ListServers(ctx context.Context) ([]string, error) {
	base := path.Join(m.prefix, "mcpscope")
	// Use SCAN instead of KEYS for better performance
	iter := m.client.Scan(ctx, 0, base+"/*", 0).Iterator()

	var servers []string
	for iter.Next(ctx) {
		key := iter.Val()
		servers = append(servers, strings.TrimPrefix(key, base+"/"))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan scopes from Redis")
	}
	return servers, nil
}

func (m *redisStore) Reset(ctx context.Context, server string) error {
	err := m.client.Del(ctx, m.scopeKey(server)).Err()
	if err != nil {
		return errors.Wrap(err, "failed to delete scope from Redis")
	}
	return nil
}
