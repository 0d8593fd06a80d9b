package app

import (
	"context"
	"fmt"
	"time"

	"gmx-rsi-bot/internal/account"
	"gmx-rsi-bot/internal/exec"
	"gmx-rsi-bot/internal/gmx/exchange"
	"gmx-rsi-bot/internal/gmx/oracle"
	"gmx-rsi-bot/internal/signal"
	"gmx-rsi-bot/internal/strategy"

	"go.uber.org/zap"
)

type tickSnapshot struct {
	time       time.Time
	price      float64
	raw        oracle.Price
	reading    signal.Reading
	hasReading bool
	balance    account.Balance
	balanceErr error
}

// dispatch sizes and submits one action and moves the state machine on success.
func (a *App) dispatch(ctx context.Context, action strategy.Action, snap tickSnapshot) error {
	req, notional, err := a.buildOrder(action, snap)
	if err != nil {
		return err
	}
	order := exec.Order{
		ClientOrderID: fmt.Sprintf("%s:%s:%d", a.market.Address.Hex(), action, snap.time.Unix()),
		Request:       req,
	}
	res, err := a.executor.PlaceOrder(ctx, order)
	if err != nil {
		a.metrics.OrdersFailed.Inc()
		a.recordOrder(action, notional, exchange.Result{Debug: req.Debug}, err, snap.time)
		a.notify(ctx, fmt.Sprintf("gmx-rsi-bot: %s failed: %v", action, err))
		return fmt.Errorf("place %s: %w", action, err)
	}
	if res.Debug {
		a.metrics.OrdersSimulated.Inc()
		if res.EstimateFailed {
			a.metrics.EstimateFailed.Inc()
			a.log.Warn("simulated order would revert", zap.String("action", string(action)))
		}
	} else {
		a.metrics.OrdersPlaced.Inc()
	}
	if action.IsOpen() {
		err = a.position.Opened(action.Target(), notional, snap.time)
	} else {
		err = a.position.Closed()
	}
	if err != nil {
		return err
	}
	a.persistPosition(ctx)
	a.recordOrder(action, notional, res, nil, snap.time)

	fields := []zap.Field{
		zap.String("action", string(action)),
		zap.Float64("notional_usd", notional),
		zap.Bool("debug", res.Debug),
	}
	if res.Debug {
		fields = append(fields, zap.Uint64("gas_estimate", res.GasEstimate), zap.Bool("estimate_failed", res.EstimateFailed))
	}
	if !res.Debug {
		fields = append(fields, zap.String("tx", res.TxHash.Hex()))
	}
	a.log.Info("order dispatched", fields...)
	mode := "live"
	switch {
	case res.EstimateFailed:
		mode = "simulated (gas estimate reverted)"
	case res.Debug:
		mode = "simulated"
	}
	a.notify(ctx, fmt.Sprintf("gmx-rsi-bot: %s %s %.2f USD at %.4f (rsi %.2f)",
		mode, action, notional, snap.price, snap.reading.RSI))
	return nil
}

// buildOrder returns the request and the unleveraged USD notional it moves.
func (a *App) buildOrder(action strategy.Action, snap tickSnapshot) (exchange.OrderRequest, float64, error) {
	cfg := a.cfg.Strategy
	var notional float64
	if action.IsOpen() {
		if snap.balanceErr != nil {
			return exchange.OrderRequest{}, 0, fmt.Errorf("balance: %w", ErrUnavailable)
		}
		n, ok := strategy.OpenNotional(snap.balance.USD, cfg.OpenFraction)
		if !ok {
			return exchange.OrderRequest{}, 0, fmt.Errorf("open notional: %w", ErrUnavailable)
		}
		if err := strategy.CheckRisk(a.cfg.Risk, snap.balance.USD, n); err != nil {
			return exchange.OrderRequest{}, 0, err
		}
		notional = n
	} else {
		n, ok := strategy.CloseNotional(a.position.Position().ValueUSD, cfg.CloseFraction)
		if !ok {
			return exchange.OrderRequest{}, 0, fmt.Errorf("close notional: %w", ErrUnavailable)
		}
		notional = n
	}
	if snap.price <= 0 || snap.raw.MaxPriceFull == nil || snap.raw.MinPriceFull == nil {
		return exchange.OrderRequest{}, 0, fmt.Errorf("reference price: %w", ErrUnavailable)
	}

	isLong := action.IsLong()
	collateralToken, indexToken := a.market.ShortToken, a.market.IndexToken
	if !isLong {
		collateralToken, indexToken = a.market.LongToken, a.market.ShortToken
	}
	req := exchange.OrderRequest{
		Market:           a.market.Address,
		CollateralToken:  collateralToken,
		IndexToken:       indexToken,
		IsLong:           isLong,
		Increase:         action.IsOpen(),
		SizeDeltaUSD:     exchange.USDToGMX(strategy.Leveraged(notional, cfg.Leverage)),
		CollateralAmount: exchange.ScaleAmount(snap.price*cfg.CollateralFraction, cfg.CollateralDecimals),
		SlippagePercent:  cfg.SlippagePercent,
		AcceptablePrice:  snap.raw.MidRaw(),
		Debug:            cfg.DebugModeValue(),
	}
	return req, notional, nil
}
