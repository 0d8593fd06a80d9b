package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gmx-rsi-bot/internal/gmx/oracle"
	"gmx-rsi-bot/internal/signal"
	"gmx-rsi-bot/internal/strategy"

	"go.uber.org/zap"
)

// tick is one polling iteration: oracle price, signal, balance, decision, dispatch.
func (a *App) tick(ctx context.Context) error {
	a.metrics.Ticks.Inc()
	now := a.now().UTC()

	price, raw, err := a.fetchPrice(ctx)
	if err != nil {
		return err
	}
	if err := a.checkDeviation(price); err != nil {
		a.metrics.FetchFailed.Inc()
		return err
	}
	a.metrics.OraclePrice.Set(price)
	a.window.Observe(now, price)
	a.saveWindow(ctx)

	snap := tickSnapshot{time: now, price: price, raw: raw}
	reading, err := a.generator.Generate(a.window.Samples())
	if err != nil {
		if errors.Is(err, signal.ErrInsufficientData) {
			a.log.Info("signal undefined, waiting for more samples", zap.Int("samples", a.window.Len()))
			a.record(ctx, snap)
			return nil
		}
		return err
	}
	snap.reading = reading
	snap.hasReading = true
	a.metrics.RSI.Set(reading.RSI)

	snap.balance, snap.balanceErr = a.balance.Balance(ctx)
	if snap.balanceErr != nil {
		a.metrics.FetchFailed.Inc()
		a.log.Warn("balance unavailable", zap.Error(snap.balanceErr))
	} else {
		a.metrics.BalanceUSD.Set(snap.balance.USD)
	}

	pos := a.position.Position()
	actions := a.position.Decide(reading.Signal, a.cfg.Strategy.AllowFlip)
	a.log.Info("tick",
		zap.Float64("oracle_price", price),
		zap.Float64("rsi", reading.RSI),
		zap.String("signal", reading.Signal.String()),
		zap.String("position", string(pos.State)),
		zap.Float64("position_value_usd", pos.ValueUSD),
		zap.Int("actions", len(actions)),
	)
	if len(actions) == 0 && pos.State != strategy.StateFlat && reading.Signal != signal.Flat && !sameSide(pos.State, reading.Signal) {
		a.log.Info("direct flip ignored, waiting for a flat signal",
			zap.String("position", string(pos.State)),
			zap.String("signal", reading.Signal.String()),
		)
	}
	for _, action := range actions {
		if err := a.dispatch(ctx, action, snap); err != nil {
			a.log.Warn("dispatch skipped", zap.String("action", string(action)), zap.Error(err))
			break
		}
	}
	a.record(ctx, snap)
	return nil
}

// fetchPrice retries the oracle with doubling backoff, bounded by the breaker.
func (a *App) fetchPrice(ctx context.Context) (float64, oracle.Price, error) {
	attempts := a.breaker.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		price, raw, err := a.oracle.PriceForToken(ctx, a.market.IndexToken, a.market.IndexDecimals)
		if err == nil && (price <= 0 || math.IsNaN(price) || math.IsInf(price, 0)) {
			err = fmt.Errorf("invalid oracle price %v: %w", price, ErrUnavailable)
		}
		if err == nil {
			a.onFetchRecovered(ctx)
			return price, raw, nil
		}
		if ctx.Err() != nil {
			return 0, oracle.Price{}, ctx.Err()
		}
		lastErr = err
		a.metrics.FetchFailed.Inc()
		if attempt == attempts {
			break
		}
		wait := a.breaker.backoff(attempt)
		a.log.Warn("oracle fetch failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := a.sleep(ctx, wait); err != nil {
			return 0, oracle.Price{}, err
		}
	}
	a.onFetchExhausted(ctx, lastErr)
	return 0, oracle.Price{}, fmt.Errorf("%w: %v", ErrCircuitOpen, lastErr)
}

// checkDeviation rejects an oracle price too far from the newest window close
// to be on the same scale or a real move within one poll.
func (a *App) checkDeviation(price float64) error {
	limit := a.cfg.Strategy.MaxPriceDeviation
	latest, ok := a.window.Latest()
	if limit <= 0 || !ok || latest.Close <= 0 {
		return nil
	}
	deviation := math.Abs(price-latest.Close) / latest.Close
	if deviation <= limit {
		return nil
	}
	a.log.Warn("oracle price out of line with price window, skipping tick",
		zap.Float64("oracle_price", price),
		zap.Float64("last_close", latest.Close),
		zap.Float64("deviation", deviation),
		zap.Float64("max_deviation", limit),
	)
	return fmt.Errorf("oracle price %v deviates %.2f%% from last close %v: %w",
		price, deviation*100, latest.Close, ErrUnavailable)
}

func (a *App) onFetchExhausted(ctx context.Context, err error) {
	if !a.breaker.trip(a.now()) {
		a.log.Warn("oracle still unavailable, circuit remains open", zap.Error(err))
		return
	}
	a.metrics.CircuitOpened.Inc()
	a.log.Error("oracle fetch circuit opened",
		zap.Int("attempts", a.cfg.Retry.MaxAttempts),
		zap.Duration("cooldown", a.cfg.Retry.CircuitCooldown),
		zap.Error(err),
	)
	a.notify(ctx, fmt.Sprintf("gmx-rsi-bot: oracle fetch failed %d times, pausing for %s: %v",
		a.cfg.Retry.MaxAttempts, a.cfg.Retry.CircuitCooldown, err))
}

func (a *App) onFetchRecovered(ctx context.Context) {
	wasOpen, since := a.breaker.reset()
	if !wasOpen {
		return
	}
	a.metrics.CircuitClosed.Inc()
	down := a.now().Sub(since).Round(time.Second)
	a.log.Info("oracle fetch circuit closed", zap.Duration("downtime", down))
	a.notify(ctx, fmt.Sprintf("gmx-rsi-bot: oracle fetch recovered after %s", down))
}

func (a *App) notify(ctx context.Context, message string) {
	if a.alerts == nil {
		return
	}
	a.alerts.Notify(ctx, message)
}

func sameSide(state strategy.State, sig signal.Signal) bool {
	return (state == strategy.StateLong && sig == signal.Long) || (state == strategy.StateShort && sig == signal.Short)
}
