// Package cache memoizes rendered expressions in Redis.
//
// RenderCache wraps a render.Renderer. Images are stored under a key derived
// from the engine namespace, expression, display flag and DPI, so the same
// expression rendered by two engines or at two resolutions never collides.
// Redis failures never fail a render: the cache logs and falls through to
// the wrapped renderer.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-mathmail/internal/render"
)

// Defaults for a RenderCache.
const (
	DefaultPrefix        = "mathmail:render:"
	DefaultTTL           = 24 * time.Hour
	DefaultRenderTimeout = 2 * time.Minute
)

// ErrUnreachable indicates Redis did not answer a ping.
var ErrUnreachable = errors.New("cache unreachable")

// Verify interface compliance
var _ render.Renderer = (*RenderCache)(nil)

// RenderCache is a read-through Redis cache in front of a renderer.
type RenderCache struct {
	client    redis.UniversalClient
	next      render.Renderer
	namespace string
	prefix    string
	ttl       time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	group     singleflight.Group
}

// Option configures a RenderCache.
type Option func(*RenderCache)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *RenderCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *RenderCache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithRenderTimeout bounds a shared render, which runs detached from the
// caller's deadline.
func WithRenderTimeout(d time.Duration) Option {
	return func(c *RenderCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithNamespace separates entries produced by different engines.
func WithNamespace(ns string) Option {
	return func(c *RenderCache) { c.namespace = ns }
}

// WithLogger sets the logger for cache misses and Redis failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *RenderCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps next with a Redis-backed cache.
func New(client redis.UniversalClient, next render.Renderer, opts ...Option) *RenderCache {
	c := &RenderCache{
		client:  client,
		next:    next,
		prefix:  DefaultPrefix,
		ttl:     DefaultTTL,
		timeout: DefaultRenderTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for req.
func (c *RenderCache) Key(req render.Request) string {
	dpi := req.DPI
	if dpi == 0 {
		dpi = render.DefaultDPI
	}
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(req.Display)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(dpi)))
	h.Write([]byte{0})
	h.Write([]byte(req.Expression))
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// Render implements render.Renderer. Concurrent requests for the same key
// share one underlying render, which outlives any single caller's context.
func (c *RenderCache) Render(ctx context.Context, req render.Request) ([]byte, error) {
	key := c.Key(req)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.logger.Debug("render cache hit", "key", key)
		return data, nil
	case errors.Is(err, redis.Nil):
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		c.logger.Warn("render cache read failed", "key", key, "error", err)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// The result is shared by every waiter, not only the first caller.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		img, err := c.next.Render(rctx, req)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(rctx, key, img, c.ttl).Err(); err != nil {
			c.logger.Warn("render cache write failed", "key", key, "error", err)
		}
		return img, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Ping checks that Redis answers.
func (c *RenderCache) Ping(ctx context.Context) error {
	return Ping(ctx, c.client)
}

// Ping checks that client answers.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

// Close closes the wrapped renderer if it holds resources. The Redis client
// belongs to the caller.
func (c *RenderCache) Close() error {
	if cl, ok := c.next.(render.Closer); ok {
		return cl.Close()
	}
	return nil
}

// ClientOptions describes how to reach Redis.
type ClientOptions struct {
	Addr     string // host:port or redis:// URL
	DB       int
	Password string
}

// NewClient creates a Redis client. Addr may be a redis:// or rediss:// URL,
// in which case DB and Password in the URL take precedence.
func NewClient(o ClientOptions) (*redis.Client, error) {
	if strings.HasPrefix(o.Addr, "redis://") || strings.HasPrefix(o.Addr, "rediss://") {
		opts, err := redis.ParseURL(o.Addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		DB:       o.DB,
		Password: o.Password,
	}), nil
}
