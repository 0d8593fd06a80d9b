package state

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gmx-rsi-bot/internal/market"
)

const WindowCacheKey = "market:window"

type windowCache struct {
	IntervalMS int64           `msgpack:"i"`
	Samples    []market.Sample `msgpack:"s"`
}

// SaveWindow stores the sample window msgpack-encoded under WindowCacheKey.
func SaveWindow(ctx context.Context, store Store, interval time.Duration, samples []market.Sample) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := msgpack.Marshal(windowCache{IntervalMS: interval.Milliseconds(), Samples: samples})
	if err != nil {
		return err
	}
	return store.Set(ctx, WindowCacheKey, base64.StdEncoding.EncodeToString(payload))
}

// LoadWindow returns the cached samples. A cache written with a different
// sampling interval is treated as absent.
func LoadWindow(ctx context.Context, store Store, interval time.Duration) ([]market.Sample, bool, error) {
	if store == nil {
		return nil, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, WindowCacheKey)
	if err != nil {
		return nil, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false, nil
	}
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode window cache: %w", err)
	}
	var cache windowCache
	if err := msgpack.Unmarshal(payload, &cache); err != nil {
		return nil, false, fmt.Errorf("unmarshal window cache: %w", err)
	}
	if cache.IntervalMS != interval.Milliseconds() {
		return nil, false, nil
	}
	return cache.Samples, len(cache.Samples) > 0, nil
}
