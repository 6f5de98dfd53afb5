package answercache

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/answered-once/internal/domain/answer"
)

// ValkeyCache stores synthesized answers in a Valkey-compatible database.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs the cache.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "answer"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

// Get implements answer.Cache.
func (c *ValkeyCache) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	resp := c.client.Do(ctx, c.client.B().Get().Key(c.entryKey(key)).Build())
	text, err := resp.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return text, true, nil
}

// Set implements answer.Cache.
func (c *ValkeyCache) Set(ctx context.Context, key, text string, ttl time.Duration) error {
	if key == "" || text == "" {
		return nil
	}
	builder := c.client.B().Set().Key(c.entryKey(key)).Value(text)
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) entryKey(key string) string {
	return c.prefix + ":" + key
}

var _ answer.Cache = (*ValkeyCache)(nil)
