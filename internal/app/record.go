package app

import (
	"context"
	"time"

	"gmx-rsi-bot/internal/gmx/exchange"
	"gmx-rsi-bot/internal/signal"
	"gmx-rsi-bot/internal/state"
	"gmx-rsi-bot/internal/strategy"
	"gmx-rsi-bot/internal/timescale"

	"go.uber.org/zap"
)

func (a *App) record(ctx context.Context, snap tickSnapshot) {
	pos := a.position.Position()
	a.metrics.PositionState.Set(positionGauge(pos.State))
	a.metrics.PositionValue.Set(pos.ValueUSD)
	if a.timescale == nil {
		return
	}
	sig := "UNDEFINED"
	if snap.hasReading {
		sig = snap.reading.Signal.String()
	}
	a.timescale.EnqueueTick(timescale.TickSnapshot{
		Time:          snap.time,
		Market:        a.market.Name(),
		State:         string(pos.State),
		Signal:        sig,
		OraclePrice:   snap.price,
		SpotPrice:     snap.balance.SpotPrice,
		RSI:           snap.reading.RSI,
		HasRSI:        snap.hasReading,
		BalanceUSD:    snap.balance.USD,
		HasBalance:    snap.hasReading && snap.balanceErr == nil,
		PositionValue: pos.ValueUSD,
	})
	if latest, ok := a.window.Latest(); ok {
		a.timescale.EnqueueSample(timescale.Sample{
			Symbol:   a.market.Symbol,
			Interval: a.cfg.Strategy.SampleInterval.String(),
			Time:     latest.Time,
			Close:    latest.Close,
			Volume:   latest.Volume,
		})
	}
}

func (a *App) recordOrder(action strategy.Action, notional float64, res exchange.Result, err error, at time.Time) {
	if a.timescale == nil {
		return
	}
	event := timescale.OrderEvent{
		Time:    at,
		Market:  a.market.Name(),
		Action:  string(action),
		IsLong:  action.IsLong(),
		SizeUSD: notional,
		Debug:   res.Debug,
	}
	if err != nil {
		event.ErrorMsg = err.Error()
	} else if !res.Debug {
		event.TxHash = res.TxHash.Hex()
	}
	a.timescale.EnqueueOrder(event)
}

func (a *App) persistPosition(ctx context.Context) {
	if !a.cfg.State.PersistPosition {
		return
	}
	pos := a.position.Position()
	snap := state.PositionSnapshot{
		State:       string(pos.State),
		ValueUSD:    pos.ValueUSD,
		Market:      a.market.Address.Hex(),
		UpdatedAtMS: a.now().UnixMilli(),
	}
	if !pos.OpenedAt.IsZero() {
		snap.OpenedAtMS = pos.OpenedAt.UnixMilli()
	}
	if err := state.SavePositionSnapshot(ctx, a.store, snap); err != nil {
		a.log.Warn("position persist failed", zap.Error(err))
	}
}

func (a *App) saveWindow(ctx context.Context) {
	if !a.cfg.State.CacheWindow {
		return
	}
	if err := state.SaveWindow(ctx, a.store, a.cfg.Strategy.SampleInterval, a.window.Samples()); err != nil {
		a.log.Warn("window cache save failed", zap.Error(err))
	}
}

func positionGauge(s strategy.State) float64 {
	switch s {
	case strategy.StateLong:
		return float64(signal.Long)
	case strategy.StateShort:
		return float64(signal.Short)
	default:
		return 0
	}
}
