package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gmx-rsi-bot/internal/account"
	"gmx-rsi-bot/internal/alerts"
	"gmx-rsi-bot/internal/config"
	"gmx-rsi-bot/internal/exec"
	"gmx-rsi-bot/internal/gmx"
	"gmx-rsi-bot/internal/gmx/exchange"
	"gmx-rsi-bot/internal/gmx/oracle"
	"gmx-rsi-bot/internal/market"
	"gmx-rsi-bot/internal/metrics"
	"gmx-rsi-bot/internal/signal"
	"gmx-rsi-bot/internal/spot"
	"gmx-rsi-bot/internal/state"
	"gmx-rsi-bot/internal/state/sqlite"
	"gmx-rsi-bot/internal/strategy"
	"gmx-rsi-bot/internal/timescale"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	ErrUnavailable = errors.New("data unavailable")
	ErrCircuitOpen = errors.New("fetch circuit open")
)

type PriceOracle interface {
	PriceForToken(ctx context.Context, token common.Address, tokenDecimals int) (float64, oracle.Price, error)
}

type BalanceSource interface {
	Balance(ctx context.Context) (account.Balance, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order exec.Order) (exchange.Result, error)
}

type HistoryLoader interface {
	Load(ctx context.Context, limit int) ([]market.Sample, error)
}

type Notifier interface {
	Notify(ctx context.Context, message string)
}

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     state.Store
	oracle    PriceOracle
	balance   BalanceSource
	executor  OrderPlacer
	history   HistoryLoader
	stream    *market.Stream
	alerts    Notifier
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	timescale *timescale.Writer
	rpc       *ethclient.Client

	market    gmx.Market
	window    *market.Window
	generator *signal.Generator
	position  *strategy.StateMachine
	breaker   *breaker

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	privateKey := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	if privateKey == "" {
		return nil, errors.New("PRIVATE_KEY is required")
	}
	signer, err := exchange.NewSigner(privateKey, cfg.RPC.ChainID)
	if err != nil {
		return nil, err
	}
	if err := signer.CheckWallet(os.Getenv("WALLET_ADDRESS")); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPC.Timeout)
	defer cancel()
	rpc, err := ethclient.DialContext(ctx, cfg.RPC.URL)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	api := gmx.NewClient(cfg.GMX.APIURL, cfg.GMX.Timeout, log)
	markets, err := api.Markets(ctx)
	if err != nil {
		rpc.Close()
		_ = store.Close()
		return nil, err
	}
	selected, err := gmx.FindBySymbol(markets, cfg.GMX.MarketSymbol)
	if err != nil {
		rpc.Close()
		_ = store.Close()
		return nil, err
	}
	log.Info("market selected",
		zap.String("market", selected.Name()),
		zap.String("address", selected.Address.Hex()),
	)

	exClient, err := exchange.NewClient(rpc, signer, exchange.Config{
		ExchangeRouter:     common.HexToAddress(cfg.GMX.ExchangeRouter),
		OrderVault:         common.HexToAddress(cfg.GMX.OrderVault),
		WrappedNativeToken: common.HexToAddress(cfg.GMX.WrappedNativeToken),
		ExecutionGasLimit:  cfg.GMX.ExecutionGasLimit,
		ExecutionFeeBuffer: cfg.GMX.ExecutionFeeBuffer,
	}, log)
	if err != nil {
		rpc.Close()
		_ = store.Close()
		return nil, err
	}

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}
	ts, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		rpc.Close()
		_ = store.Close()
		return nil, fmt.Errorf("timescale: %w", err)
	}

	window := market.NewWindow(cfg.Strategy.WindowSize, cfg.Strategy.SampleInterval)
	var stream *market.Stream
	if cfg.History.StreamEnabled {
		stream = market.NewStream(cfg.History.StreamURL, cfg.History.StreamSymbol, cfg.History.Interval, cfg.History.StreamDelay, window, log)
	}

	a := newApp(cfg, log)
	a.store = store
	a.rpc = rpc
	a.oracle = oracle.New(api, cfg.GMX.PriceDecimals)
	a.balance = account.New(rpc, spot.New(cfg.Spot, log), signer.Address(), log)
	a.executor = exec.New(exClient, store, log)
	a.history = market.NewHistory(cfg.History.BaseURL, cfg.History.Symbol, cfg.History.Range, cfg.History.Interval, cfg.History.Timeout, log)
	a.stream = stream
	a.alerts = alerts.NewTelegram(cfg.Telegram, log)
	a.metrics = m
	a.prom = prom
	a.timescale = ts
	a.market = selected
	a.window = window
	return a, nil
}

// newApp sets up the parts that need no network access.
func newApp(cfg *config.Config, log *zap.Logger) *App {
	th := signal.Thresholds{LongBelow: cfg.Strategy.LongBelow, ShortAbove: cfg.Strategy.ShortAbove}
	return &App{
		cfg:       cfg,
		log:       log,
		metrics:   metrics.NewNoop(),
		window:    market.NewWindow(cfg.Strategy.WindowSize, cfg.Strategy.SampleInterval),
		generator: signal.NewGenerator(cfg.Strategy.RSIPeriod, cfg.Strategy.VolumeMAPeriod, th),
		position:  strategy.NewStateMachine(),
		breaker:   newBreaker(cfg.Retry),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()
	if err := a.restorePosition(ctx); err != nil {
		return err
	}
	if err := a.warmWindow(ctx); err != nil {
		return err
	}
	if a.stream != nil {
		if err := a.stream.Start(ctx); err != nil {
			a.log.Warn("kline stream start failed", zap.Error(err))
		}
	}
	if a.prom != nil {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.Metrics.Address, a.cfg.Metrics.Path, a.prom.Handler(), a.log); err != nil {
				a.log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}
	a.timescale.Start(ctx)

	a.log.Info("polling loop started",
		zap.Duration("poll_interval", a.cfg.Strategy.PollInterval),
		zap.Bool("debug_mode", a.cfg.Strategy.DebugModeValue()),
		zap.String("position", string(a.position.Position().State)),
	)
	for {
		wait := a.cfg.Strategy.PollInterval
		if err := a.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrCircuitOpen) {
				wait = a.cfg.Retry.CircuitCooldown
			}
			a.log.Warn("tick failed", zap.Error(err), zap.Duration("next_attempt_in", wait))
		}
		if err := a.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (a *App) close() {
	if a.stream != nil {
		_ = a.stream.Close()
	}
	if a.timescale != nil {
		_ = a.timescale.Close()
	}
	if a.rpc != nil {
		a.rpc.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// warmWindow seeds the rolling window from the history API, falling back to
// the sqlite cache when the API is unavailable.
func (a *App) warmWindow(ctx context.Context) error {
	var loadErr error
	if a.history != nil {
		samples, err := a.history.Load(ctx, a.cfg.Strategy.WindowSize)
		if err == nil && len(samples) > 0 {
			a.window.Load(samples)
			a.saveWindow(ctx)
			return nil
		}
		loadErr = err
		if loadErr == nil {
			loadErr = errors.New("history returned no samples")
		}
		a.log.Warn("history load failed", zap.Error(loadErr))
	}
	if a.cfg.State.CacheWindow {
		samples, ok, err := state.LoadWindow(ctx, a.store, a.cfg.Strategy.SampleInterval)
		if err != nil {
			a.log.Warn("window cache load failed", zap.Error(err))
		} else if ok {
			a.window.Load(samples)
			a.log.Info("window restored from cache", zap.Int("samples", a.window.Len()))
			return nil
		}
	}
	if loadErr != nil {
		return fmt.Errorf("seed price window: %w", loadErr)
	}
	return nil
}

func (a *App) restorePosition(ctx context.Context) error {
	if !a.cfg.State.PersistPosition {
		return nil
	}
	snap, ok, err := state.LoadPositionSnapshot(ctx, a.store)
	if err != nil {
		return fmt.Errorf("load position: %w", err)
	}
	if !ok {
		return nil
	}
	if snap.Market != "" && snap.Market != a.market.Address.Hex() {
		a.log.Warn("persisted position belongs to another market, ignoring", zap.String("market", snap.Market))
		return nil
	}
	pos := strategy.Position{State: strategy.State(snap.State), ValueUSD: snap.ValueUSD}
	if snap.OpenedAtMS > 0 {
		pos.OpenedAt = time.UnixMilli(snap.OpenedAtMS)
	}
	if err := a.position.Restore(pos); err != nil {
		return fmt.Errorf("restore position: %w", err)
	}
	a.log.Info("position restored", zap.String("state", snap.State), zap.Float64("value_usd", snap.ValueUSD))
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
