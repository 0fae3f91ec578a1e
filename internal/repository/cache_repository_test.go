package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-analytics-api/pkg/errors"
)

func TestCacheRepositoryKeyNamespace(t *testing.T) {
	assert.Equal(t, "analytics:dash:admin:a1", NewCacheRepository(nil, "analytics", nil).key("dash:admin:a1"))
	assert.Equal(t, "dash:admin:a1", NewCacheRepository(nil, "", nil).key("dash:admin:a1"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "analytics", nil)
	ctx := context.Background()

	var out map[string]int
	err := repo.Get(ctx, "k", &out)
	assert.True(t, appErrors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	repo := NewCacheRepository(client, "analytics", nil)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	var out map[string]int
	err := repo.Get(ctx, "k", &out)
	require.Error(t, err)
	assert.False(t, appErrors.Is(err, appErrors.ErrCacheMiss))
	assert.Error(t, repo.Ping(ctx))
}
