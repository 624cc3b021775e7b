package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda o order book por gamble com TTL curto.
// É invalidado em qualquer list/buy para não servir listagem defasada.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyBook(gambleID int64) string { return "book:gamble:" + strconv.FormatInt(gambleID, 10) }

func (c *Cache) GetBook(ctx context.Context, gambleID int64, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyBook(gambleID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetBook(ctx context.Context, gambleID int64, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyBook(gambleID), b, ttl).Err()
}

func (c *Cache) InvalidateBook(ctx context.Context, gambleID int64) error {
	return c.R.Del(ctx, keyBook(gambleID)).Err()
}
