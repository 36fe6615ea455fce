// Package store provides resilient access to the Redis database that holds
// the options snapshots written by the collector.
package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DockerPort is the host-mapped port of the containerized Redis setup.
	DockerPort = 6380

	// StandardPort is the conventional Redis port, used for fallbacks.
	StandardPort = 6379

	defaultHost     = "localhost"
	defaultTimeout  = 5 * time.Second
	fallbackTimeout = 2 * time.Second
	defaultPoolSize = 10
)

// Config is one fully-specified set of Redis connection parameters. A Config
// is immutable once built; Candidates returns several of them in the order
// they should be attempted.
type Config struct {
	Host         string
	Port         int
	DB           int
	Password     string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeepAlive    bool
	PoolSize     int
}

// Addr returns the host:port dial address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL returns the redis:// connection URL for this config.
func (c Config) URL() string {
	if c.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", c.Password, c.Host, c.Port, c.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", c.Host, c.Port, c.DB)
}

// Overrides carries caller-supplied connection overrides. Zero values mean
// "no override"; a db index of 0 is the default either way.
type Overrides struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// DefaultConfig returns the base connection settings for the Docker setup.
func DefaultConfig() Config {
	return Config{
		Host:         defaultHost,
		Port:         DockerPort,
		DB:           0,
		DialTimeout:  defaultTimeout,
		ReadTimeout:  defaultTimeout,
		WriteTimeout: defaultTimeout,
		KeepAlive:    true,
		PoolSize:     defaultPoolSize,
	}
}

// ConnectionParams resolves the primary configuration: defaults, then
// environment overrides, then caller overrides. Environment values apply
// only when present and non-empty (non-zero for numeric values), so the
// environment is consulted on every call rather than cached process-wide.
func ConnectionParams(o Overrides) Config {
	cfg := DefaultConfig()

	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if port, _ := strconv.Atoi(os.Getenv("REDIS_PORT")); port != 0 {
		cfg.Port = port
	}
	if db, _ := strconv.Atoi(os.Getenv("REDIS_DB")); db != 0 {
		cfg.DB = db
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}

	if o.Host != "" {
		cfg.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if o.DB != 0 {
		cfg.DB = o.DB
	}
	if o.Password != "" {
		cfg.Password = o.Password
	}

	return cfg
}

// Candidates returns the ordered connection attempts: the resolved primary
// first, then the same host/db on the standard port, and — when the primary
// port is the Docker mapping — a local short-timeout candidate regardless of
// any overrides. Pure computation, no network I/O.
func Candidates(o Overrides) []Config {
	primary := ConnectionParams(o)
	candidates := []Config{primary}

	fallback := primary
	fallback.Port = StandardPort
	candidates = append(candidates, fallback)

	if primary.Port == DockerPort {
		local := DefaultConfig()
		local.Port = StandardPort
		local.DialTimeout = fallbackTimeout
		local.ReadTimeout = fallbackTimeout
		local.WriteTimeout = fallbackTimeout
		candidates = append(candidates, local)
	}

	return candidates
}
