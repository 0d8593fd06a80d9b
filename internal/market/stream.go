package market

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gmx-rsi-bot/internal/ws"

	"go.uber.org/zap"
)

// Stream folds kline events from a websocket feed into a Window.
type Stream struct {
	ws       *ws.Client
	window   *Window
	symbol   string
	interval string
	log      *zap.Logger
}

func NewStream(url, symbol, interval string, reconnectDelay time.Duration, window *Window, log *zap.Logger) *Stream {
	return &Stream{
		ws:       ws.New(url, reconnectDelay, 30*time.Second, log),
		window:   window,
		symbol:   strings.ToLower(symbol),
		interval: interval,
		log:      log,
	}
}

func (s *Stream) Start(ctx context.Context) error {
	sub := map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{s.symbol + "@kline_" + s.interval},
		"id":     1,
	}
	if err := s.ws.Subscribe(ctx, sub); err != nil {
		return err
	}
	go func() {
		_ = s.ws.Run(ctx, s.handleMessage)
	}()
	return nil
}

func (s *Stream) Close() error {
	return s.ws.Close()
}

func (s *Stream) handleMessage(msg json.RawMessage) {
	var payload map[string]any
	if err := json.Unmarshal(msg, &payload); err != nil {
		s.log.Debug("kline decode error", zap.Error(err))
		return
	}
	sample, ok := parseKline(payload)
	if !ok {
		return
	}
	s.window.ObserveCandle(sample)
}
