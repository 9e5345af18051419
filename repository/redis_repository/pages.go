package redis_repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const pageKeyPrefix = "crawl4ai:markdown:"

// PageCache stores extracted page text keyed by URL. Entries carry the
// TTL supplied on Set; get/set are atomic per key.
type PageCache struct {
	client *redis.Client
}

func NewPageCache(client *redis.Client) *PageCache {
	return &PageCache{client: client}
}

func pageKey(url string) string { return pageKeyPrefix + url }

// Get returns the cached text for url. The second return value is false
// when the key is absent.
func (p *PageCache) Get(ctx context.Context, url string) (string, bool, error) {
	val, err := p.client.Get(ctx, pageKey(url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set stores text for url with the given expiry.
func (p *PageCache) Set(ctx context.Context, url, text string, ttl time.Duration) error {
	return p.client.Set(ctx, pageKey(url), text, ttl).Err()
}
