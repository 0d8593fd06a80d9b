package state

import (
	"context"
	"testing"
)

func TestPositionSnapshotRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	snapshot := PositionSnapshot{
		State:       "LONG",
		ValueUSD:    100,
		Market:      "ETH/USD [WETH-USDC]",
		OpenedAtMS:  1000,
		UpdatedAtMS: 2000,
	}
	if err := SavePositionSnapshot(ctx, store, snapshot); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	got, ok, err := LoadPositionSnapshot(ctx, store)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to be present")
	}
	if got != snapshot {
		t.Fatalf("unexpected snapshot: %#v", got)
	}
}

func TestPositionSnapshotMissing(t *testing.T) {
	got, ok, err := LoadPositionSnapshot(context.Background(), &memoryStore{})
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if ok {
		t.Fatalf("expected no snapshot, got %#v", got)
	}
}

func TestPositionSnapshotInvalid(t *testing.T) {
	store := &memoryStore{items: map[string]string{PositionSnapshotKey: "{"}}
	if _, _, err := LoadPositionSnapshot(context.Background(), store); err == nil {
		t.Fatalf("expected error for invalid snapshot JSON")
	}
}

func TestPositionSnapshotNilStore(t *testing.T) {
	if err := SavePositionSnapshot(context.Background(), nil, PositionSnapshot{}); err != nil {
		t.Fatalf("expected nil store to be a no-op, got %v", err)
	}
	if _, ok, err := LoadPositionSnapshot(context.Background(), nil); ok || err != nil {
		t.Fatalf("expected nil store to report nothing, got ok=%v err=%v", ok, err)
	}
}
