package store

import (
	"context"
	"net"

	redis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Client owns a single Redis connection and the override set it was built
// with. Data-path methods never return errors: any failure degrades to an
// empty result and a logged diagnostic, so callers must treat "empty" as
// ambiguous between absent and unreachable. IsConnected disambiguates.
//
// A Client is not safe for concurrent use; the facade builds one per request.
type Client struct {
	rdb       *redis.Client
	active    Config
	connected bool
	overrides Overrides

	// open is swappable so tests can inject a mocked connection.
	open func(Config) *redis.Client
}

// New returns a disconnected Client for the given override set.
func New(o Overrides) *Client {
	return &Client{overrides: o, open: openRedis}
}

// NewFromConn wraps an already-established Redis connection, reported as
// connected under cfg. Used by tests and by callers that manage their own
// connection lifecycle.
func NewFromConn(rdb *redis.Client, cfg Config) *Client {
	return &Client{rdb: rdb, active: cfg, connected: true, open: openRedis}
}

func openRedis(cfg Config) *redis.Client {
	opts := &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
	if !cfg.KeepAlive {
		dialer := net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: -1}
		opts.Dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		}
	}
	return redis.NewClient(opts)
}

// Connect attempts each candidate configuration in order and keeps the first
// one whose PING succeeds. Exhausting the list leaves the client disconnected
// and returns false; it never returns an error.
func (c *Client) Connect(ctx context.Context) bool {
	for i, cfg := range Candidates(c.overrides) {
		rdb := c.open(cfg)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Debug().Err(err).Str("addr", cfg.Addr()).Int("candidate", i).
				Msg("redis connection attempt failed")
			_ = rdb.Close()
			continue
		}
		if c.rdb != nil {
			_ = c.rdb.Close()
		}
		c.rdb = rdb
		c.active = cfg
		c.connected = true
		if i > 0 {
			log.Warn().Str("addr", cfg.Addr()).Msg("connected to redis using fallback")
		} else {
			log.Info().Str("addr", cfg.Addr()).Msg("connected to redis")
		}
		return true
	}

	log.Error().Msg("all redis connection attempts failed")
	c.connected = false
	return false
}

// Reconnect re-runs Connect with the original override set.
func (c *Client) Reconnect(ctx context.Context) bool {
	log.Info().Msg("attempting redis reconnect")
	return c.Connect(ctx)
}

// IsConnected probes the active connection. Any failure, including never
// having connected, reports false.
func (c *Client) IsConnected(ctx context.Context) bool {
	if c.rdb == nil || !c.connected {
		return false
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		log.Debug().Err(err).Str("addr", c.active.Addr()).Msg("redis liveness probe failed")
		return false
	}
	return true
}

// Active returns the configuration of the live connection, if any.
func (c *Client) Active() (Config, bool) {
	return c.active, c.connected && c.rdb != nil
}

// GetHash fetches the hash stored at key. Not connected, key absent and I/O
// failure all collapse to an empty map.
func (c *Client) GetHash(ctx context.Context, key string) map[string]string {
	if c.rdb == nil || !c.connected {
		log.Debug().Str("key", key).Msg("hash fetch skipped, not connected")
		return map[string]string{}
	}
	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("hash fetch failed")
		return map[string]string{}
	}
	return fields
}

// ListKeys walks the keyspace with SCAN and returns every key matching the
// glob pattern, or nil on any failure.
func (c *Client) ListKeys(ctx context.Context, pattern string) []string {
	if c.rdb == nil || !c.connected {
		log.Debug().Str("pattern", pattern).Msg("key listing skipped, not connected")
		return nil
	}

	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Error().Err(err).Str("pattern", pattern).Msg("key listing failed")
		return nil
	}
	return keys
}

// Close releases the connection. Idempotent; subsequent operations behave as
// not connected until Connect or Reconnect succeeds again.
func (c *Client) Close() {
	if c.rdb != nil {
		_ = c.rdb.Close()
		c.rdb = nil
	}
	c.connected = false
}
