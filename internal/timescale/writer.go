package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gmx-rsi-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

type Sample struct {
	Symbol   string
	Interval string
	Time     time.Time
	Close    float64
	Volume   float64
}

// TickSnapshot is one polling iteration as seen by the decision loop.
type TickSnapshot struct {
	Time          time.Time
	Market        string
	State         string
	Signal        string
	OraclePrice   float64
	SpotPrice     float64
	RSI           float64
	HasRSI        bool
	BalanceUSD    float64
	HasBalance    bool
	PositionValue float64
}

type OrderEvent struct {
	Time     time.Time
	Market   string
	Action   string
	IsLong   bool
	SizeUSD  float64
	TxHash   string
	Debug    bool
	ErrorMsg string
}

type Writer struct {
	db         *sql.DB
	log        *zap.Logger
	schema     string
	ticks      chan TickSnapshot
	samples    chan Sample
	orders     chan OrderEvent
	started    atomic.Bool
	dropTick   atomic.Uint64
	dropSample atomic.Uint64
	dropOrder  atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	writer := newWriter(db, schema, cfg.QueueSize, log)
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func newWriter(db *sql.DB, schema string, queueSize int, log *zap.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Writer{
		db:      db,
		log:     log,
		schema:  schema,
		ticks:   make(chan TickSnapshot, queueSize),
		samples: make(chan Sample, queueSize),
		orders:  make(chan OrderEvent, queueSize),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueTick(snapshot TickSnapshot) {
	if w == nil {
		return
	}
	select {
	case w.ticks <- snapshot:
	default:
		if w.dropTick.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale tick queue full")
		}
	}
}

func (w *Writer) EnqueueSample(sample Sample) {
	if w == nil {
		return
	}
	select {
	case w.samples <- sample:
	default:
		if w.dropSample.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale sample queue full")
		}
	}
}

func (w *Writer) EnqueueOrder(event OrderEvent) {
	if w == nil {
		return
	}
	select {
	case w.orders <- event:
	default:
		if w.dropOrder.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale order queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-w.ticks:
			w.writeTick(ctx, snap)
		case sample := <-w.samples:
			w.writeSample(ctx, sample)
		case event := <-w.orders:
			w.writeOrder(ctx, event)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		volume DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (ts, symbol, interval)
	)`, w.table("price_samples"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		market TEXT NOT NULL,
		state TEXT NOT NULL,
		signal TEXT NOT NULL,
		oracle_price DOUBLE PRECISION NOT NULL,
		spot_price DOUBLE PRECISION NOT NULL,
		rsi DOUBLE PRECISION NOT NULL,
		has_rsi BOOLEAN NOT NULL,
		balance_usd DOUBLE PRECISION NOT NULL,
		has_balance BOOLEAN NOT NULL,
		position_value_usd DOUBLE PRECISION NOT NULL
	)`, w.table("tick_snapshots"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		market TEXT NOT NULL,
		action TEXT NOT NULL,
		is_long BOOLEAN NOT NULL,
		size_usd DOUBLE PRECISION NOT NULL,
		tx_hash TEXT NOT NULL,
		debug BOOLEAN NOT NULL,
		error TEXT NOT NULL
	)`, w.table("order_events"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	for _, name := range []string{"price_samples", "tick_snapshots", "order_events"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(name))); err != nil && w.log != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", name), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeTick(ctx context.Context, snap TickSnapshot) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, market, state, signal, oracle_price, spot_price, rsi, has_rsi,
		balance_usd, has_balance, position_value_usd
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	)`, w.table("tick_snapshots"))
	if _, err := w.db.ExecContext(ctx, query,
		snap.Time,
		snap.Market,
		snap.State,
		snap.Signal,
		snap.OraclePrice,
		snap.SpotPrice,
		snap.RSI,
		snap.HasRSI,
		snap.BalanceUSD,
		snap.HasBalance,
		snap.PositionValue,
	); err != nil && w.log != nil {
		w.log.Warn("timescale tick insert failed", zap.Error(err))
	}
}

func (w *Writer) writeSample(ctx context.Context, sample Sample) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, interval, close, volume
	) VALUES (
		$1,$2,$3,$4,$5
	)
	ON CONFLICT (ts, symbol, interval) DO UPDATE SET
		close = EXCLUDED.close,
		volume = EXCLUDED.volume`, w.table("price_samples"))
	if _, err := w.db.ExecContext(ctx, query,
		sample.Time,
		sample.Symbol,
		sample.Interval,
		sample.Close,
		sample.Volume,
	); err != nil && w.log != nil {
		w.log.Warn("timescale sample upsert failed", zap.Error(err))
	}
}

func (w *Writer) writeOrder(ctx context.Context, event OrderEvent) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, market, action, is_long, size_usd, tx_hash, debug, error
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8
	)`, w.table("order_events"))
	if _, err := w.db.ExecContext(ctx, query,
		event.Time,
		event.Market,
		event.Action,
		event.IsLong,
		event.SizeUSD,
		event.TxHash,
		event.Debug,
		event.ErrorMsg,
	); err != nil && w.log != nil {
		w.log.Warn("timescale order insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
