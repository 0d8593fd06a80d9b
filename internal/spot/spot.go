package spot

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gmx-rsi-bot/internal/config"
)

// Client reads a spot price from the CoinGecko simple price endpoint.
type Client struct {
	http   *resty.Client
	coinID string
	vs     string
	log    *zap.Logger
}

func New(cfg config.SpotConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		coinID: cfg.CoinID,
		vs:     cfg.VsCurrency,
		log:    log,
	}
}

// Price never returns an error: any failure is logged and reported as ok=false.
func (c *Client) Price(ctx context.Context) (float64, bool) {
	var payload map[string]map[string]float64
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           c.coinID,
			"vs_currencies": c.vs,
		}).
		SetResult(&payload).
		Get("/simple/price")
	if err != nil {
		c.log.Warn("spot price request failed", zap.Error(err))
		return 0, false
	}
	if resp.IsError() {
		c.log.Warn("spot price http error", zap.Int("status", resp.StatusCode()))
		return 0, false
	}
	price, ok := payload[c.coinID][c.vs]
	if !ok || price <= 0 {
		c.log.Warn("spot price missing from response", zap.String("coin", c.coinID), zap.String("vs", c.vs))
		return 0, false
	}
	return price, true
}
