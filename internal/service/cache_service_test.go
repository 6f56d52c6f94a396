package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

type memoryCacheRepo struct {
	store map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.store, key)
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &memoryCacheRepo{store: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	var missed string
	hit, err := cache.Get(context.Background(), "key", &missed)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "key", "value", 0))

	var found string
	hit, err = cache.Get(context.Background(), "key", &found)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", found)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &memoryCacheRepo{store: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	require.NoError(t, cache.Set(context.Background(), "key", "value", time.Minute))
	assert.Empty(t, repo.store)

	var dest string
	hit, err := cache.Get(context.Background(), "key", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceNilReceiver(t *testing.T) {
	var cache *CacheService
	assert.False(t, cache.Enabled())

	var dest string
	hit, err := cache.Get(context.Background(), "key", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, cache.Set(context.Background(), "key", "value", time.Minute))
}
