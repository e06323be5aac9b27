package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rewired-gh/quickodds/internal/models"
)

// PriceCache stores each asset's last price as a hash at "cg:lastPrice:{assetID}"
// with fields "price" and "ts" (Unix nanoseconds).
type PriceCache struct {
	rdb *redis.Client
	now func() time.Time
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.rdb, now: time.Now}
}

func priceKey(assetID string) string {
	return "cg:lastPrice:" + assetID
}

func priceFields(price float64, ts time.Time) map[string]any {
	return map[string]any{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
}

// parsePrice extracts the price field from a hash; ok is false when absent or malformed.
func parsePrice(vals map[string]string) (float64, bool) {
	s, ok := vals["price"]
	if !ok {
		return 0, false
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || models.ValidatePrice(p) != nil {
		return 0, false
	}
	return p, true
}

// SetPrice stores the latest price for an asset. HSET is atomic per key.
func (pc *PriceCache) SetPrice(ctx context.Context, assetID string, price float64) error {
	if err := models.ValidatePrice(price); err != nil {
		return err
	}
	if err := pc.rdb.HSet(ctx, priceKey(assetID), priceFields(price, pc.now())).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", assetID, err)
	}
	return nil
}

// GetPrice returns the cached price for an asset. ok is false when nothing usable is cached.
func (pc *PriceCache) GetPrice(ctx context.Context, assetID string) (float64, bool, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(assetID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis: get price %s: %w", assetID, err)
	}
	p, ok := parsePrice(vals)
	return p, ok, nil
}

// LastPrices reads several assets in one pipeline. Missing assets are omitted.
func (pc *PriceCache) LastPrices(ctx context.Context, assetIDs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(assetIDs))
	if len(assetIDs) == 0 {
		return result, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(assetIDs))
	for _, id := range assetIDs {
		cmds[id] = pipe.HGetAll(ctx, priceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get prices pipeline: %w", err)
	}

	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			continue
		}
		if p, ok := parsePrice(vals); ok {
			result[id] = p
		}
	}
	return result, nil
}
