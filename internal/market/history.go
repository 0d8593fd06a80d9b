package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// History loads recent samples from the Yahoo chart API.
type History struct {
	client   *resty.Client
	symbol   string
	rangeStr string
	interval string
	log      *zap.Logger
}

func NewHistory(baseURL, symbol, rangeStr, interval string, timeout time.Duration, log *zap.Logger) *History {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "Mozilla/5.0 (gmx-rsi-bot)")
	return &History{
		client:   client,
		symbol:   symbol,
		rangeStr: rangeStr,
		interval: interval,
		log:      log,
	}
}

// Load returns the most recent limit samples, oldest first.
func (h *History) Load(ctx context.Context, limit int) ([]Sample, error) {
	var payload map[string]any
	resp, err := h.client.R().
		SetContext(ctx).
		SetPathParam("symbol", h.symbol).
		SetQueryParams(map[string]string{
			"range":    h.rangeStr,
			"interval": h.interval,
		}).
		SetResult(&payload).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), truncate(resp.String(), 2048))
	}
	samples, err := parseChart(payload)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	h.log.Info("historical samples loaded",
		zap.String("symbol", h.symbol),
		zap.String("interval", h.interval),
		zap.Int("samples", len(samples)),
	)
	return samples, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
