package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
)

func TestNewCacheDefaultTTL(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultTTL},
		{-time.Second, DefaultTTL},
		{time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if got := NewCache(nil, tt.in).TTL(); got != tt.want {
			t.Errorf("NewCache(%v).TTL() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewClientAcceptsBareAddress(t *testing.T) {
	c := NewClient("localhost:6380")
	defer c.Close()
	if c.Options().Addr != "localhost:6380" {
		t.Fatalf("addr = %s", c.Options().Addr)
	}

	c2 := NewClient("redis://:pw@cache:6379/2")
	defer c2.Close()
	if c2.Options().Addr != "cache:6379" || c2.Options().DB != 2 {
		t.Fatalf("options = %+v", c2.Options())
	}
}

func TestCacheIntegration(t *testing.T) {
	url := os.Getenv("SSLVERIFY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SSLVERIFY_TEST_REDIS_URL not set")
	}

	client := NewClient(url)
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	_ = client.Del(ctx, LastBatchKey).Err()

	cache := NewCache(client, time.Minute)
	if _, err := cache.Last(ctx); !errors.Is(err, ErrNotCached) {
		t.Fatalf("empty cache err = %v", err)
	}

	b := core.NewBatchResult(time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC))
	b.Valid = append(b.Valid, core.ResultRow{ID: "1", Domain: "ok.com", DaysRemaining: 30})
	if err := cache.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := cache.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(got.Valid) != 1 || got.Valid[0].Domain != "ok.com" || !got.CheckedAt.Equal(b.CheckedAt) {
		t.Fatalf("last = %+v", got)
	}
	if ttl := client.TTL(ctx, LastBatchKey).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
}
