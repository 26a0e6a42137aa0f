package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounterStartsAtOne(t *testing.T) {
	c := NewMemory()
	n, err := c.Next(context.Background(), "seq:default:processes")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounterIsStrictlyIncreasing(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	var prev int64
	for i := 0; i < 10; i++ {
		n, err := c.Next(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, prev+1, n)
		prev = n
	}
}

func TestMemoryEnsureAtLeast(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	require.NoError(t, c.EnsureAtLeast(ctx, "k", 4))
	n, err := c.Next(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Never lowers an existing counter.
	require.NoError(t, c.EnsureAtLeast(ctx, "k", 2))
	n, err = c.Next(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestMemoryCounterConcurrentCallersGetDistinctValues(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	const workers = 50

	var wg sync.WaitGroup
	seen := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Next(ctx, "k")
			assert.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, workers)
}

func TestKeyIsTenantScoped(t *testing.T) {
	assert.NotEqual(t, Key("org-a", "issues:risk"), Key("org-b", "issues:risk"))
	assert.Equal(t, "seq:default:processes", Key("default", "processes"))
}
