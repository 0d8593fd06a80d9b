package exchange

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Backend is the subset of ethclient.Client used to submit orders.
type Backend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

type Config struct {
	ExchangeRouter     common.Address
	OrderVault         common.Address
	WrappedNativeToken common.Address
	ExecutionGasLimit  uint64
	ExecutionFeeBuffer float64
}

type Client struct {
	backend Backend
	signer  *Signer
	cfg     Config
	log     *zap.Logger
}

func NewClient(backend Backend, signer *Signer, cfg Config, log *zap.Logger) (*Client, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if cfg.ExchangeRouter == (common.Address{}) || cfg.OrderVault == (common.Address{}) {
		return nil, errors.New("exchange router and order vault are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{backend: backend, signer: signer, cfg: cfg, log: log}, nil
}

// Submit builds the multicall for req. In debug mode the transaction is only
// gas-estimated; otherwise it is signed and broadcast.
func (c *Client) Submit(ctx context.Context, req OrderRequest) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("suggest gas price: %w", err)
	}
	fee := ExecutionFee(gasPrice, c.cfg.ExecutionGasLimit, c.cfg.ExecutionFeeBuffer)
	from := c.signer.Address()
	data, value, err := encodeMulticall(req, from, c.cfg.OrderVault, c.cfg.WrappedNativeToken, fee)
	if err != nil {
		return Result{}, err
	}
	router := c.cfg.ExchangeRouter
	result := Result{
		Debug:        req.Debug,
		ExecutionFee: fee,
		Value:        value,
		Calldata:     data,
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &router,
		Value: value,
		Data:  data,
	})
	if req.Debug {
		if err != nil {
			c.log.Warn("order gas estimate failed", zap.Error(err))
			gas = 0
			result.EstimateFailed = true
		}
		result.GasEstimate = gas
		c.log.Info("order simulated",
			zap.Bool("is_long", req.IsLong),
			zap.Bool("increase", req.Increase),
			zap.String("size_delta_usd", req.SizeDeltaUSD.String()),
			zap.String("execution_fee", fee.String()),
			zap.Uint64("gas_estimate", gas),
		)
		return result, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("estimate gas: %w", err)
	}
	result.GasEstimate = gas
	tx, err := c.buildTx(ctx, from, router, value, data, gas, gasPrice)
	if err != nil {
		return Result{}, err
	}
	signed, err := c.signer.SignTx(tx)
	if err != nil {
		return Result{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return Result{}, fmt.Errorf("send tx: %w", err)
	}
	result.TxHash = signed.Hash()
	c.log.Info("order submitted",
		zap.String("tx", result.TxHash.Hex()),
		zap.Bool("is_long", req.IsLong),
		zap.Bool("increase", req.Increase),
	)
	return result, nil
}

func (c *Client) buildTx(ctx context.Context, from, to common.Address, value *big.Int, data []byte, gas uint64, gasPrice *big.Int) (*types.Transaction, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	tip, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))
	if feeCap.Cmp(tip) < 0 {
		feeCap = new(big.Int).Set(tip)
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.signer.ChainID(),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas + gas/5,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}
