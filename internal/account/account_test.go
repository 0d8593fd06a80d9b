package account

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type fakeRPC struct {
	wei *big.Int
	err error
	got common.Address
}

func (f *fakeRPC) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.got = account
	return f.wei, f.err
}

type fakeSpot struct {
	price float64
	ok    bool
}

func (f fakeSpot) Price(ctx context.Context) (float64, bool) {
	return f.price, f.ok
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestBalanceUSD(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	rpc := &fakeRPC{wei: ether(2)}
	acct := New(rpc, fakeSpot{price: 1500, ok: true}, addr, zap.NewNop())

	bal, err := acct.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if rpc.got != addr {
		t.Fatalf("expected balance read for %s, got %s", addr.Hex(), rpc.got.Hex())
	}
	if bal.Native != 2 || bal.USD != 3000 || bal.SpotPrice != 1500 {
		t.Fatalf("unexpected balance %+v", bal)
	}
}

func TestBalanceRPCError(t *testing.T) {
	acct := New(&fakeRPC{err: errors.New("timeout")}, fakeSpot{price: 1, ok: true}, common.Address{}, zap.NewNop())
	if _, err := acct.Balance(context.Background()); !errors.Is(err, ErrBalanceUnavailable) {
		t.Fatalf("expected ErrBalanceUnavailable, got %v", err)
	}
}

func TestBalanceSpotUnavailable(t *testing.T) {
	acct := New(&fakeRPC{wei: ether(1)}, fakeSpot{}, common.Address{}, zap.NewNop())
	bal, err := acct.Balance(context.Background())
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
	if bal.Native != 1 {
		t.Fatalf("expected native balance to be reported, got %v", bal.Native)
	}
}

func TestWeiToEther(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := WeiToEther(wei); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
}
