package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leozw/ssl-verifier/internal/core"
)

const (
	LastBatchKey = "sslverify:batch:last"
	DefaultTTL   = 7 * 24 * time.Hour
)

var ErrNotCached = fmt.Errorf("no batch result cached: %w", core.ErrNoReport)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	return &Client{redis.NewClient(opt)}
}

func (c *Client) SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Cache keeps the last batch result for the API. It implements batch.Sink.
type Cache struct {
	client *Client
	ttl    time.Duration
}

func NewCache(client *Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Save(ctx context.Context, b *core.BatchResult) error {
	return c.client.SetJSON(ctx, LastBatchKey, b, c.ttl)
}

// Last returns the cached batch, or ErrNotCached.
func (c *Cache) Last(ctx context.Context) (*core.BatchResult, error) {
	var b core.BatchResult
	err := c.client.GetJSON(ctx, LastBatchKey, &b)
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
