package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gmx-rsi-bot/internal/gmx/exchange"
	"gmx-rsi-bot/internal/state"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Order pairs an order request with a client id used for idempotency.
type Order struct {
	ClientOrderID string
	Request       exchange.OrderRequest
}

type Submitter interface {
	Submit(ctx context.Context, req exchange.OrderRequest) (exchange.Result, error)
}

type Executor struct {
	client  Submitter
	store   state.Store
	log     *zap.Logger
	backoff time.Duration

	mu    sync.Mutex
	cache map[string]string
}

func New(client Submitter, store state.Store, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		client:  client,
		store:   store,
		log:     log,
		backoff: 200 * time.Millisecond,
		cache:   make(map[string]string),
	}
}

// PlaceOrder submits with retry. A live order with a client id already
// recorded returns the stored tx hash without resubmitting.
func (e *Executor) PlaceOrder(ctx context.Context, order Order) (exchange.Result, error) {
	if order.ClientOrderID == "" || order.Request.Debug {
		return e.submitWithRetry(ctx, order.Request)
	}
	cacheKey := "cloid:" + order.ClientOrderID
	e.mu.Lock()
	if hash, ok := e.cache[cacheKey]; ok {
		e.mu.Unlock()
		return exchange.Result{TxHash: common.HexToHash(hash)}, nil
	}
	e.mu.Unlock()
	if e.store != nil {
		if hash, ok, err := e.store.Get(ctx, cacheKey); err != nil {
			return exchange.Result{}, err
		} else if ok {
			e.mu.Lock()
			e.cache[cacheKey] = hash
			e.mu.Unlock()
			return exchange.Result{TxHash: common.HexToHash(hash)}, nil
		}
	}
	res, err := e.submitWithRetry(ctx, order.Request)
	if err != nil {
		return exchange.Result{}, err
	}
	hash := res.TxHash.Hex()
	if e.store != nil {
		if err := e.store.Set(ctx, cacheKey, hash); err != nil {
			e.log.Warn("failed to persist order tx", zap.Error(err))
		}
	}
	e.mu.Lock()
	e.cache[cacheKey] = hash
	e.mu.Unlock()
	return res, nil
}

func (e *Executor) submitWithRetry(ctx context.Context, req exchange.OrderRequest) (exchange.Result, error) {
	var res exchange.Result
	err := e.retry(ctx, func() error {
		var err error
		res, err = e.client.Submit(ctx, req)
		return err
	})
	if err != nil {
		return exchange.Result{}, err
	}
	if !req.Debug && res.TxHash == (common.Hash{}) {
		return exchange.Result{}, errors.New("empty tx hash")
	}
	return res, nil
}

func (e *Executor) retry(ctx context.Context, fn func() error) error {
	backoff := e.backoff
	for attempt := 0; attempt < 5; attempt++ {
		if err := fn(); err != nil {
			if attempt == 4 {
				return fmt.Errorf("retry failed: %w", err)
			}
			e.log.Warn("order submit failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
			continue
		}
		return nil
	}
	return nil
}
