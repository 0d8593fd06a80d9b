package exchange

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USD amounts on GMX carry 30 decimals.
const usdDecimals = 30

// USDToGMX scales a USD float to the 1e30 fixed-point GMX uses for sizes.
func USDToGMX(usd float64) *big.Int {
	return ScaleAmount(usd, usdDecimals)
}

// ScaleAmount converts a float to an integer with the given decimals, truncating.
func ScaleAmount(amount float64, decimals int32) *big.Int {
	if amount <= 0 {
		return new(big.Int)
	}
	return decimal.NewFromFloat(amount).Shift(decimals).Truncate(0).BigInt()
}

// AcceptablePrice widens price by slippage against the trader: up when buying
// (open long, close short) and down when selling.
func AcceptablePrice(price *big.Int, slippage float64, isLong, increase bool) *big.Int {
	if price == nil || price.Sign() <= 0 {
		return new(big.Int)
	}
	factor := decimal.NewFromInt(1)
	buying := isLong == increase
	if buying {
		factor = factor.Add(decimal.NewFromFloat(slippage))
	} else {
		factor = factor.Sub(decimal.NewFromFloat(slippage))
	}
	return decimal.NewFromBigInt(price, 0).Mul(factor).Truncate(0).BigInt()
}

// ExecutionFee is gasPrice × gasLimit × buffer, the keeper fee sent with the order.
func ExecutionFee(gasPrice *big.Int, gasLimit uint64, buffer float64) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	if buffer <= 0 {
		buffer = 1
	}
	fee := decimal.NewFromBigInt(gasPrice, 0).
		Mul(decimal.NewFromInt(int64(gasLimit))).
		Mul(decimal.NewFromFloat(buffer))
	return fee.Truncate(0).BigInt()
}

func (r OrderRequest) validate() error {
	if r.Market == (common.Address{}) {
		return errors.New("market is required")
	}
	if r.CollateralToken == (common.Address{}) {
		return errors.New("collateral token is required")
	}
	if r.SizeDeltaUSD == nil || r.SizeDeltaUSD.Sign() <= 0 {
		return errors.New("size delta must be > 0")
	}
	if r.AcceptablePrice == nil || r.AcceptablePrice.Sign() <= 0 {
		return errors.New("reference price must be > 0")
	}
	if r.SlippagePercent < 0 || r.SlippagePercent >= 1 {
		return fmt.Errorf("slippage %f out of range", r.SlippagePercent)
	}
	return nil
}

func createParams(req OrderRequest, receiver common.Address, fee *big.Int) createOrderParams {
	collateral := req.CollateralAmount
	if collateral == nil {
		collateral = new(big.Int)
	}
	swapPath := req.SwapPath
	if swapPath == nil {
		swapPath = []common.Address{}
	}
	return createOrderParams{
		Addresses: createOrderAddresses{
			Receiver:               receiver,
			Market:                 req.Market,
			InitialCollateralToken: req.CollateralToken,
			SwapPath:               swapPath,
		},
		Numbers: createOrderNumbers{
			SizeDeltaUsd:                 new(big.Int).Set(req.SizeDeltaUSD),
			InitialCollateralDeltaAmount: new(big.Int).Set(collateral),
			TriggerPrice:                 new(big.Int),
			AcceptablePrice:              AcceptablePrice(req.AcceptablePrice, req.SlippagePercent, req.IsLong, req.Increase),
			ExecutionFee:                 new(big.Int).Set(fee),
			CallbackGasLimit:             new(big.Int),
			MinOutputAmount:              new(big.Int),
		},
		OrderType: uint8(req.OrderType()),
		IsLong:    req.IsLong,
	}
}

// encodeMulticall packs the router multicall and returns calldata and tx value.
// Increase orders move collateral to the order vault: native collateral rides
// along with the fee in sendWnt, tokens go through sendTokens.
func encodeMulticall(req OrderRequest, receiver, orderVault, wnt common.Address, fee *big.Int) ([]byte, *big.Int, error) {
	parsed, err := parsedRouterABI()
	if err != nil {
		return nil, nil, err
	}
	value := new(big.Int).Set(fee)
	var tokenTransfer []byte
	if req.Increase && req.CollateralAmount != nil && req.CollateralAmount.Sign() > 0 {
		if req.CollateralToken == wnt {
			value.Add(value, req.CollateralAmount)
		} else {
			tokenTransfer, err = parsed.Pack("sendTokens", req.CollateralToken, orderVault, req.CollateralAmount)
			if err != nil {
				return nil, nil, fmt.Errorf("pack sendTokens: %w", err)
			}
		}
	}
	sendWnt, err := parsed.Pack("sendWnt", orderVault, value)
	if err != nil {
		return nil, nil, fmt.Errorf("pack sendWnt: %w", err)
	}
	create, err := parsed.Pack("createOrder", createParams(req, receiver, fee))
	if err != nil {
		return nil, nil, fmt.Errorf("pack createOrder: %w", err)
	}
	calls := [][]byte{sendWnt}
	if tokenTransfer != nil {
		calls = append(calls, tokenTransfer)
	}
	calls = append(calls, create)
	data, err := parsed.Pack("multicall", calls)
	if err != nil {
		return nil, nil, fmt.Errorf("pack multicall: %w", err)
	}
	return data, value, nil
}
