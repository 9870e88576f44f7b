package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/dmr-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), mr
}

func TestCacheRoundTripWithPrefix(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "files:p1:u1", []string{"f1"}, time.Minute))
	assert.True(t, mr.Exists("dmr:files:p1:u1"))

	var got []string
	require.NoError(t, repo.Get(ctx, "files:p1:u1", &got))
	assert.Equal(t, []string{"f1"}, got)

	mr.FastForward(2 * time.Minute)
	err := repo.Get(ctx, "files:p1:u1", &got)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestDeleteByPatternBatches(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("files:p1:u%d", i), i, time.Minute))
	}
	require.NoError(t, repo.Set(ctx, "files:p2:u1", 1, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "files:p1:*"))
	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("dmr:files:p2:u1"))
}

func TestNilClientIsMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var v string
	assert.True(t, errors.Is(repo.Get(context.Background(), "k", &v), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Second))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
	assert.NoError(t, repo.Close())
}
