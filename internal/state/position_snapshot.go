package state

import (
	"context"
	"encoding/json"
	"strings"
)

const PositionSnapshotKey = "position:last_snapshot"

type PositionSnapshot struct {
	State       string  `json:"state"`
	ValueUSD    float64 `json:"value_usd"`
	Market      string  `json:"market"`
	OpenedAtMS  int64   `json:"opened_at_ms"`
	UpdatedAtMS int64   `json:"updated_at_ms"`
}

func LoadPositionSnapshot(ctx context.Context, store Store) (PositionSnapshot, bool, error) {
	if store == nil {
		return PositionSnapshot{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, PositionSnapshotKey)
	if err != nil {
		return PositionSnapshot{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return PositionSnapshot{}, false, nil
	}
	var snapshot PositionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return PositionSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func SavePositionSnapshot(ctx context.Context, store Store, snapshot PositionSnapshot) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return store.Set(ctx, PositionSnapshotKey, string(payload))
}
