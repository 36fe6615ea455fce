package store

import (
	"context"
	"errors"
	"testing"

	redis "github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ConnectFirstCandidate(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()

	rdb, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	c := New(Overrides{})
	c.open = func(Config) *redis.Client { return rdb }

	require.True(t, c.Connect(ctx))

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, DockerPort, active.Port)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_ConnectFallsBack(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()

	// First candidate refuses, second answers.
	attempt := 0
	c := New(Overrides{})
	c.open = func(Config) *redis.Client {
		rdb, mock := redismock.NewClientMock()
		if attempt == 0 {
			mock.ExpectPing().SetErr(errors.New("connection refused"))
		} else {
			mock.ExpectPing().SetVal("PONG")
		}
		attempt++
		return rdb
	}

	require.True(t, c.Connect(ctx))

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, StandardPort, active.Port)
	assert.Equal(t, 2, attempt)
}

func TestClient_ConnectExhaustsCandidates(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()

	attempts := 0
	c := New(Overrides{})
	c.open = func(Config) *redis.Client {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectPing().SetErr(errors.New("connection refused"))
		attempts++
		return rdb
	}

	assert.False(t, c.Connect(ctx))
	assert.False(t, c.IsConnected(ctx))
	assert.Equal(t, 3, attempts)

	_, ok := c.Active()
	assert.False(t, ok)
}

func TestClient_IsConnected(t *testing.T) {
	ctx := context.Background()

	t.Run("never connected", func(t *testing.T) {
		c := New(Overrides{})
		assert.False(t, c.IsConnected(ctx))
	})

	t.Run("live connection", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectPing().SetVal("PONG")

		c := NewFromConn(rdb, DefaultConfig())
		assert.True(t, c.IsConnected(ctx))
	})

	t.Run("probe failure", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectPing().SetErr(errors.New("broken pipe"))

		c := NewFromConn(rdb, DefaultConfig())
		assert.False(t, c.IsConnected(ctx))
	})
}

func TestClient_GetHash(t *testing.T) {
	ctx := context.Background()

	t.Run("present", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectHGetAll("option:BTC-29DEC23-50000-C").SetVal(map[string]string{
			"symbol":     "BTC-29DEC23-50000-C",
			"mark_price": "1250.5",
		})

		c := NewFromConn(rdb, DefaultConfig())
		fields := c.GetHash(ctx, "option:BTC-29DEC23-50000-C")
		assert.Equal(t, "1250.5", fields["mark_price"])
	})

	t.Run("absent key yields empty map", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectHGetAll("option:NOPE").SetVal(map[string]string{})

		c := NewFromConn(rdb, DefaultConfig())
		assert.Empty(t, c.GetHash(ctx, "option:NOPE"))
	})

	t.Run("io failure yields empty map", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectHGetAll("option:BOOM").SetErr(errors.New("io timeout"))

		c := NewFromConn(rdb, DefaultConfig())
		assert.Empty(t, c.GetHash(ctx, "option:BOOM"))
	})

	t.Run("not connected yields empty map", func(t *testing.T) {
		c := New(Overrides{})
		assert.Empty(t, c.GetHash(ctx, "option:ANY"))
	})
}

func TestClient_ListKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("matching keys", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectScan(0, "option:BTC-*", 0).SetVal([]string{
			"option:BTC-29DEC23-50000-C",
			"option:BTC-29DEC23-50000-P",
		}, 0)

		c := NewFromConn(rdb, DefaultConfig())
		keys := c.ListKeys(ctx, "option:BTC-*")
		assert.Len(t, keys, 2)
	})

	t.Run("scan failure yields nil", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectScan(0, "option:*", 0).SetErr(errors.New("io timeout"))

		c := NewFromConn(rdb, DefaultConfig())
		assert.Nil(t, c.ListKeys(ctx, "option:*"))
	})

	t.Run("not connected yields nil", func(t *testing.T) {
		c := New(Overrides{})
		assert.Nil(t, c.ListKeys(ctx, "option:*"))
	})
}

func TestClient_ReconnectAfterFailure(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()

	healthy := false
	c := New(Overrides{})
	c.open = func(Config) *redis.Client {
		rdb, mock := redismock.NewClientMock()
		if healthy {
			mock.ExpectPing().SetVal("PONG")
		} else {
			mock.ExpectPing().SetErr(errors.New("connection refused"))
		}
		return rdb
	}

	require.False(t, c.Connect(ctx))

	// Store comes back; reconnect re-runs the original candidate list.
	healthy = true
	require.True(t, c.Reconnect(ctx))

	active, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, DockerPort, active.Port)
}

func TestClient_CloseIdempotent(t *testing.T) {
	ctx := context.Background()

	rdb, _ := redismock.NewClientMock()
	c := NewFromConn(rdb, DefaultConfig())

	c.Close()
	c.Close()

	assert.False(t, c.IsConnected(ctx))
	assert.Empty(t, c.GetHash(ctx, "option:ANY"))
	assert.Nil(t, c.ListKeys(ctx, "option:*"))
}
