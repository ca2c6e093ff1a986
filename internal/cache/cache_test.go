package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"barangay-portal/internal/common/config"
	"barangay-portal/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func enabledConfig() config.CacheConfig {
	return config.CacheConfig{Enabled: true, TTL: 30, Prefix: "test"}
}

// ==========================
// redismock
// ==========================

func TestGet_Miss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, enabledConfig(), logger.NewTestLogger(t))

	mock.ExpectGet("test:gen:proposals").RedisNil()
	mock.ExpectGet("test:proposals:0:user=u-1").RedisNil()

	var out []item
	hit, err := c.Get(context.Background(), "proposals", "user=u-1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Hit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, enabledConfig(), logger.NewTestLogger(t))

	mock.ExpectGet("test:gen:proposals").SetVal("3")
	mock.ExpectGet("test:proposals:3:all").SetVal(`[{"id":"p-1","status":"pending"}]`)

	var out []item
	hit, err := c.Get(context.Background(), "proposals", "all", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []item{{ID: "p-1", Status: "pending"}}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_RedisDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, enabledConfig(), logger.NewTestLogger(t))

	mock.ExpectGet("test:gen:court").SetErr(errors.New("connection refused"))

	var out []item
	_, err := c.Get(context.Background(), "court", "all", &out)
	assert.True(t, errors.Is(err, ErrCacheFailed))
}

func TestInvalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, enabledConfig(), logger.NewTestLogger(t))

	mock.ExpectIncr("test:gen:proposals").SetVal(1)
	mock.ExpectIncr("test:gen:homepage").SetVal(7)

	require.NoError(t, c.Invalidate(context.Background(), "proposals", "homepage"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabled_NoRedisCalls(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, config.CacheConfig{Enabled: false}, logger.NewTestLogger(t))

	var out []item
	hit, err := c.Get(context.Background(), "proposals", "all", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.Set(context.Background(), "proposals", "all", out))
	require.NoError(t, c.Invalidate(context.Background(), "proposals"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// miniredis
// ==========================

func newMiniCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, enabledConfig(), logger.NewTestLogger(t)), mr
}

func TestLoad_ReadThroughAndInvalidate(t *testing.T) {
	c, _ := newMiniCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) ([]item, error) {
		calls++
		return []item{{ID: "p-1", Status: "pending"}}, nil
	}

	_, err := Load(ctx, c, "proposals", "all", loader)
	require.NoError(t, err)
	got, err := Load(ctx, c, "proposals", "all", loader)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second read served from cache")
	assert.Len(t, got, 1)

	require.NoError(t, c.Invalidate(ctx, "proposals"))
	_, err = Load(ctx, c, "proposals", "all", loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "invalidation forces a reload")
}

func TestLoad_EntriesExpire(t *testing.T) {
	c, mr := newMiniCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "homepage", "composite", map[string]string{"welcome": "hi"}))
	mr.FastForward(31 * time.Second)

	var out map[string]string
	hit, err := c.Get(ctx, "homepage", "composite", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLoad_LoaderErrorNotCached(t *testing.T) {
	c, mr := newMiniCache(t)

	_, err := Load(context.Background(), c, "court", "all", func(context.Context) ([]item, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestLoad_InvalidateDuringLoadNotServed(t *testing.T) {
	c, _ := newMiniCache(t)
	ctx := context.Background()

	// a mutation commits while the first reader is still loading
	got, err := Load(ctx, c, "ambulance", "all", func(ctx context.Context) ([]item, error) {
		require.NoError(t, c.Invalidate(ctx, "ambulance"))
		return []item{{ID: "a-1", Status: "pending"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", got[0].Status)

	got, err = Load(ctx, c, "ambulance", "all", func(context.Context) ([]item, error) {
		return []item{{ID: "a-1", Status: "cancelled"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got[0].Status)
}

func TestLoad_GenerationReadOnce(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := New(rdb, enabledConfig(), logger.NewTestLogger(t))

	mock.ExpectGet("test:gen:court").SetVal("2")
	mock.ExpectGet("test:court:2:all").RedisNil()
	mock.ExpectSet("test:court:2:all", []byte(`[{"id":"c-1","status":"approved"}]`), 30*time.Second).SetVal("OK")

	_, err := Load(context.Background(), c, "court", "all", func(context.Context) ([]item, error) {
		return []item{{ID: "c-1", Status: "approved"}}, nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
