package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wms:documents"

// Cache keeps read-through copies of populated documents. Each document has
// its own version counter so a mutation only invalidates that document.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(id int64) string {
	return keyPrefix + ":version:" + strconv.FormatInt(id, 10)
}

// Version returns the document's cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, id int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey(id), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey(id)).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes the detail key for the current version.
func (c *Cache) Key(ctx context.Context, id int64) (string, error) {
	ver, err := c.Version(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:detail:%d:%d", keyPrefix, id, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, id int64, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader)
	}
	key, err := c.Key(ctx, id)
	if err != nil {
		return loadInto(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return loadInto(ctx, dest, loader)
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	return json.Unmarshal(raw, dest)
}

// Bump invalidates one document.
func (c *Cache) Bump(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(id)).Err()
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
