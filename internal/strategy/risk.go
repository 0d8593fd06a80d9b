package strategy

import (
	"errors"
	"fmt"

	"gmx-rsi-bot/internal/config"
)

var (
	ErrNotionalLimit = errors.New("notional exceeds configured maximum")
	ErrBalanceLow    = errors.New("balance below configured minimum")
)

// CheckRisk gates an open order.
func CheckRisk(cfg config.RiskConfig, balanceUSD, notionalUSD float64) error {
	if cfg.MinBalanceUSD > 0 && balanceUSD < cfg.MinBalanceUSD {
		return fmt.Errorf("balance %.2f below %.2f: %w", balanceUSD, cfg.MinBalanceUSD, ErrBalanceLow)
	}
	if cfg.MaxNotionalUSD > 0 && notionalUSD > cfg.MaxNotionalUSD {
		return fmt.Errorf("notional %.2f above %.2f: %w", notionalUSD, cfg.MaxNotionalUSD, ErrNotionalLimit)
	}
	return nil
}
