package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrBalanceUnavailable = errors.New("balance unavailable")
	ErrPriceUnavailable   = errors.New("spot price unavailable")
)

// BalanceReader is the subset of ethclient used for native balances.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type PriceSource interface {
	Price(ctx context.Context) (float64, bool)
}

type Balance struct {
	Wei       *big.Int
	Native    float64
	SpotPrice float64
	USD       float64
}

// Account values the wallet's native balance in USD.
type Account struct {
	rpc     BalanceReader
	spot    PriceSource
	address common.Address
	log     *zap.Logger
}

func New(rpc BalanceReader, spot PriceSource, address common.Address, log *zap.Logger) *Account {
	if log == nil {
		log = zap.NewNop()
	}
	return &Account{rpc: rpc, spot: spot, address: address, log: log}
}

func (a *Account) Address() common.Address {
	return a.address
}

// Balance reads the latest native balance and converts it with the spot price.
func (a *Account) Balance(ctx context.Context) (Balance, error) {
	if a.rpc == nil {
		return Balance{}, fmt.Errorf("rpc client missing: %w", ErrBalanceUnavailable)
	}
	wei, err := a.rpc.BalanceAt(ctx, a.address, nil)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}
	if wei == nil {
		return Balance{}, ErrBalanceUnavailable
	}
	native := WeiToEther(wei)
	if a.spot == nil {
		return Balance{Wei: wei, Native: native}, ErrPriceUnavailable
	}
	price, ok := a.spot.Price(ctx)
	if !ok {
		return Balance{Wei: wei, Native: native}, ErrPriceUnavailable
	}
	usd := decimal.NewFromFloat(native).Mul(decimal.NewFromFloat(price)).InexactFloat64()
	a.log.Debug("balance fetched",
		zap.String("address", a.address.Hex()),
		zap.Float64("native", native),
		zap.Float64("spot", price),
		zap.Float64("usd", usd),
	)
	return Balance{Wei: wei, Native: native, SpotPrice: price, USD: usd}, nil
}

func WeiToEther(wei *big.Int) float64 {
	return decimal.NewFromBigInt(wei, -18).InexactFloat64()
}
