package state

import (
	"context"
	"testing"
	"time"

	"gmx-rsi-bot/internal/market"
)

func TestWindowCacheRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0).UTC()
	samples := []market.Sample{
		{Time: base, Close: 2000.5, Volume: 12},
		{Time: base.Add(15 * time.Minute), Close: 2001.25, Volume: 3},
	}
	if err := SaveWindow(ctx, store, 15*time.Minute, samples); err != nil {
		t.Fatalf("save window: %v", err)
	}
	got, ok, err := LoadWindow(ctx, store, 15*time.Minute)
	if err != nil {
		t.Fatalf("load window: %v", err)
	}
	if !ok || len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d (ok=%v)", len(samples), len(got), ok)
	}
	for i := range samples {
		if !got[i].Time.Equal(samples[i].Time) || got[i].Close != samples[i].Close || got[i].Volume != samples[i].Volume {
			t.Fatalf("sample %d mismatch: %+v vs %+v", i, got[i], samples[i])
		}
	}
}

func TestWindowCacheIntervalMismatch(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	samples := []market.Sample{{Time: time.Unix(0, 0), Close: 1}}
	if err := SaveWindow(ctx, store, 15*time.Minute, samples); err != nil {
		t.Fatalf("save window: %v", err)
	}
	if _, ok, err := LoadWindow(ctx, store, time.Minute); ok || err != nil {
		t.Fatalf("expected mismatched interval to be ignored, got ok=%v err=%v", ok, err)
	}
}

func TestWindowCacheCorrupt(t *testing.T) {
	store := &memoryStore{items: map[string]string{WindowCacheKey: "%%%"}}
	if _, _, err := LoadWindow(context.Background(), store, time.Minute); err == nil {
		t.Fatalf("expected error for corrupt cache")
	}
}
