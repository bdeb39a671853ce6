package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCache_LoadsOnce(t *testing.T) {
	var loads int32
	release := make(chan struct{})
	cache := NewRefCache("sites", func(ctx context.Context) (map[string]int64, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return map[string]int64{"S1": 1}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, int64(1), v["S1"])
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.False(t, cache.BuiltAt().IsZero())
}

func TestRefCache_InvalidateAndReload(t *testing.T) {
	n := 0
	cache := NewRefCache("categories", func(ctx context.Context) (int, error) {
		n++
		return n, nil
	})
	ctx := context.Background()

	v, _ := cache.Get(ctx)
	assert.Equal(t, 1, v)
	v, _ = cache.Get(ctx)
	assert.Equal(t, 1, v)

	cache.Invalidate()
	v, _ = cache.Get(ctx)
	assert.Equal(t, 2, v)

	v, _ = cache.Reload(ctx)
	assert.Equal(t, 3, v)
	assert.Equal(t, "categories", cache.Name())
}

func TestRefCache_ErrorIsNotCached(t *testing.T) {
	fail := true
	cache := NewRefCache("sites", func(ctx context.Context) (string, error) {
		if fail {
			return "", errBoom
		}
		return "ok", nil
	})

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, errBoom)

	fail = false
	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
