// Package sequence issues monotonic counters for record codes (PRO-NNN,
// RISK/YY/NNN, KPI-NNN). Deriving sequence numbers from in-memory collection
// length is not collision-safe under concurrent writers, so codes come from a
// counter instead; counters are seeded from collection length at load so the
// first issued code still matches the historical count+1 rule.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"qualis/pkg/domain"
)

// Counter hands out strictly increasing numbers per key.
type Counter interface {
	// Next reserves and returns the next value for key (first call yields 1
	// unless EnsureAtLeast raised the floor).
	Next(ctx context.Context, key string) (int64, error)
	// EnsureAtLeast raises the counter to at least n without reserving a value.
	EnsureAtLeast(ctx context.Context, key string, n int64) error
}

// Key namespaces a counter by tenant and collection.
func Key(tenant domain.TenantID, collection string) string {
	return fmt.Sprintf("seq:%s:%s", tenant, collection)
}

// Memory is a mutex-guarded in-process counter, the default when Redis is not
// configured. Monotonic within one process only.
type Memory struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]int64)}
}

func (m *Memory) Next(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key]++
	return m.values[key], nil
}

func (m *Memory) EnsureAtLeast(_ context.Context, key string, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[key] < n {
		m.values[key] = n
	}
	return nil
}

// Redis backs counters with INCR so codes stay collision-free across replicas.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Next(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("sequence next %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) EnsureAtLeast(ctx context.Context, key string, n int64) error {
	// Atomic max: only raise the stored value, never lower it.
	const script = `
		local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
		if cur < tonumber(ARGV[1]) then
			redis.call('SET', KEYS[1], ARGV[1])
		end
		return 1`
	if err := r.client.Eval(ctx, script, []string{key}, n).Err(); err != nil {
		return fmt.Errorf("sequence ensure %s: %w", key, err)
	}
	return nil
}
