package exchange

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type OrderType uint8

const (
	OrderTypeMarketSwap     OrderType = 0
	OrderTypeLimitSwap      OrderType = 1
	OrderTypeMarketIncrease OrderType = 2
	OrderTypeLimitIncrease  OrderType = 3
	OrderTypeMarketDecrease OrderType = 4
)

// OrderRequest is everything needed to build one GMX v2 market order.
type OrderRequest struct {
	Market           common.Address
	CollateralToken  common.Address
	IndexToken       common.Address
	IsLong           bool
	Increase         bool
	SizeDeltaUSD     *big.Int
	CollateralAmount *big.Int
	SlippagePercent  float64
	SwapPath         []common.Address
	// AcceptablePrice is the raw oracle price the slippage bound is applied to.
	AcceptablePrice *big.Int
	Debug           bool
}

func (r OrderRequest) OrderType() OrderType {
	if r.Increase {
		return OrderTypeMarketIncrease
	}
	return OrderTypeMarketDecrease
}

// Result describes a submitted or simulated order.
type Result struct {
	Debug bool
	// EstimateFailed marks a simulated order whose gas estimate reverted.
	EstimateFailed bool
	TxHash         common.Hash
	GasEstimate    uint64
	ExecutionFee   *big.Int
	Value          *big.Int
	Calldata       []byte
}

type createOrderAddresses struct {
	Receiver               common.Address
	CallbackContract       common.Address
	UiFeeReceiver          common.Address
	Market                 common.Address
	InitialCollateralToken common.Address
	SwapPath               []common.Address
}

type createOrderNumbers struct {
	SizeDeltaUsd                 *big.Int
	InitialCollateralDeltaAmount *big.Int
	TriggerPrice                 *big.Int
	AcceptablePrice              *big.Int
	ExecutionFee                 *big.Int
	CallbackGasLimit             *big.Int
	MinOutputAmount              *big.Int
}

type createOrderParams struct {
	Addresses                createOrderAddresses
	Numbers                  createOrderNumbers
	OrderType                uint8
	DecreasePositionSwapType uint8
	IsLong                   bool
	ShouldUnwrapNativeToken  bool
	ReferralCode             [32]byte
}
