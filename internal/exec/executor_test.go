package exec

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"gmx-rsi-bot/internal/gmx/exchange"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }

type mockSubmitter struct {
	mu       sync.Mutex
	calls    int
	failures int
	hash     common.Hash
}

func (m *mockSubmitter) Submit(ctx context.Context, req exchange.OrderRequest) (exchange.Result, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return exchange.Result{}, errors.New("rpc unavailable")
	}
	if req.Debug {
		return exchange.Result{Debug: true, GasEstimate: 1}, nil
	}
	return exchange.Result{TxHash: m.hash}, nil
}

func liveOrder(id string) Order {
	return Order{
		ClientOrderID: id,
		Request: exchange.OrderRequest{
			IsLong:       true,
			Increase:     true,
			SizeDeltaUSD: big.NewInt(1),
		},
	}
}

func TestExecutorIdempotentPlacement(t *testing.T) {
	store := newMemoryStore()
	client := &mockSubmitter{hash: common.HexToHash("0x01")}
	logger := zap.NewNop()
	executor := New(client, store, logger)

	ctx := context.Background()
	order := liveOrder("open_long:1700000000")

	res1, err := executor.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res2, err := executor.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res1.TxHash != res2.TxHash {
		t.Fatalf("expected same tx hash, got %s and %s", res1.TxHash.Hex(), res2.TxHash.Hex())
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 submit call, got %d", client.calls)
	}

	client2 := &mockSubmitter{hash: common.HexToHash("0x02")}
	executor2 := New(client2, store, logger)
	res3, err := executor2.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res3.TxHash != res1.TxHash {
		t.Fatalf("expected stored tx hash %s, got %s", res1.TxHash.Hex(), res3.TxHash.Hex())
	}
	if client2.calls != 0 {
		t.Fatalf("expected no submit calls on restart, got %d", client2.calls)
	}
}

func TestExecutorDebugOrdersAreNotCached(t *testing.T) {
	client := &mockSubmitter{}
	executor := New(client, newMemoryStore(), zap.NewNop())
	order := liveOrder("open_long:1")
	order.Request.Debug = true

	for i := 0; i < 2; i++ {
		res, err := executor.PlaceOrder(context.Background(), order)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Debug {
			t.Fatalf("expected debug result")
		}
	}
	if client.calls != 2 {
		t.Fatalf("expected every simulation to run, got %d calls", client.calls)
	}
}

func TestExecutorRetriesTransientFailures(t *testing.T) {
	client := &mockSubmitter{failures: 2, hash: common.HexToHash("0x03")}
	executor := New(client, nil, zap.NewNop())
	executor.backoff = time.Millisecond

	res, err := executor.PlaceOrder(context.Background(), liveOrder(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TxHash != client.hash || client.calls != 3 {
		t.Fatalf("expected success on third call, got calls=%d", client.calls)
	}
}

func TestExecutorGivesUpAfterFiveAttempts(t *testing.T) {
	client := &mockSubmitter{failures: 10}
	executor := New(client, nil, zap.NewNop())
	executor.backoff = time.Millisecond

	if _, err := executor.PlaceOrder(context.Background(), liveOrder("")); err == nil {
		t.Fatalf("expected error after retries")
	}
	if client.calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", client.calls)
	}
}

func TestExecutorStopsOnCancel(t *testing.T) {
	client := &mockSubmitter{failures: 10}
	executor := New(client, nil, zap.NewNop())
	executor.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := executor.PlaceOrder(ctx, liveOrder(""))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestExecutorRejectsEmptyHash(t *testing.T) {
	client := &mockSubmitter{}
	executor := New(client, nil, zap.NewNop())
	if _, err := executor.PlaceOrder(context.Background(), liveOrder("")); err == nil {
		t.Fatalf("expected error for empty tx hash")
	}
}
