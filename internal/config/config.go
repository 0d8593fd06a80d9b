package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	RPC       RPCConfig       `yaml:"rpc"`
	GMX       GMXConfig       `yaml:"gmx"`
	Spot      SpotConfig      `yaml:"spot"`
	History   HistoryConfig   `yaml:"history"`
	State     StateConfig     `yaml:"state"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Retry     RetryConfig     `yaml:"retry"`
	Risk      RiskConfig      `yaml:"risk"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RPCConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	ChainID int64         `yaml:"chain_id"`
}

type GMXConfig struct {
	Chain              string        `yaml:"chain"`
	APIURL             string        `yaml:"api_url"`
	Timeout            time.Duration `yaml:"timeout"`
	MarketSymbol       string        `yaml:"market_symbol"`
	PriceDecimals      int32         `yaml:"price_decimals"`
	ExchangeRouter     string        `yaml:"exchange_router"`
	OrderVault         string        `yaml:"order_vault"`
	WrappedNativeToken string        `yaml:"wrapped_native_token"`
	ExecutionGasLimit  uint64        `yaml:"execution_gas_limit"`
	ExecutionFeeBuffer float64       `yaml:"execution_fee_buffer"`
}

type SpotConfig struct {
	BaseURL    string        `yaml:"base_url"`
	CoinID     string        `yaml:"coin_id"`
	VsCurrency string        `yaml:"vs_currency"`
	Timeout    time.Duration `yaml:"timeout"`
}

type HistoryConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Symbol        string        `yaml:"symbol"`
	Range         string        `yaml:"range"`
	Interval      string        `yaml:"interval"`
	Timeout       time.Duration `yaml:"timeout"`
	StreamEnabled bool          `yaml:"stream_enabled"`
	StreamURL     string        `yaml:"stream_url"`
	StreamSymbol  string        `yaml:"stream_symbol"`
	StreamDelay   time.Duration `yaml:"stream_reconnect_delay"`
}

type StateConfig struct {
	SQLitePath      string `yaml:"sqlite_path"`
	PersistPosition bool   `yaml:"persist_position"`
	CacheWindow     bool   `yaml:"cache_window"`
}

type StrategyConfig struct {
	RSIPeriod          int           `yaml:"rsi_period"`
	LongBelow          float64       `yaml:"long_below"`
	ShortAbove         float64       `yaml:"short_above"`
	WindowSize         int           `yaml:"window_size"`
	SampleInterval     time.Duration `yaml:"sample_interval"`
	VolumeMAPeriod     int           `yaml:"volume_ma_period"`
	OpenFraction       float64       `yaml:"open_fraction"`
	CloseFraction      float64       `yaml:"close_fraction"`
	Leverage           float64       `yaml:"leverage"`
	SlippagePercent    float64       `yaml:"slippage_percent"`
	CollateralFraction float64       `yaml:"collateral_fraction"`
	CollateralDecimals int32         `yaml:"collateral_decimals"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	MaxPriceDeviation  float64       `yaml:"max_price_deviation"`
	AllowFlip          bool          `yaml:"allow_flip"`
	DebugMode          *bool         `yaml:"debug_mode"`
}

func (s StrategyConfig) DebugModeValue() bool {
	if s.DebugMode == nil {
		return true
	}
	return *s.DebugMode
}

type RetryConfig struct {
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	MaxAttempts     int           `yaml:"max_attempts"`
	CircuitCooldown time.Duration `yaml:"circuit_cooldown"`
}

type RiskConfig struct {
	MaxNotionalUSD float64 `yaml:"max_notional_usd"`
	MinBalanceUSD  float64 `yaml:"min_balance_usd"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	if m.Enabled == nil {
		return false
	}
	return *m.Enabled
}

type TelegramConfig struct {
	Enabled bool          `yaml:"enabled"`
	Token   string        `yaml:"token"`
	ChatID  string        `yaml:"chat_id"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.RPC.Timeout == 0 {
		cfg.RPC.Timeout = 15 * time.Second
	}
	if cfg.RPC.ChainID == 0 {
		cfg.RPC.ChainID = 42161
	}
	if cfg.GMX.Chain == "" {
		cfg.GMX.Chain = "arbitrum"
	}
	if cfg.GMX.APIURL == "" {
		cfg.GMX.APIURL = "https://arbitrum-api.gmxinfra.io"
	}
	if cfg.GMX.Timeout == 0 {
		cfg.GMX.Timeout = 15 * time.Second
	}
	if cfg.GMX.MarketSymbol == "" {
		cfg.GMX.MarketSymbol = "ETH"
	}
	if cfg.GMX.ExchangeRouter == "" {
		cfg.GMX.ExchangeRouter = "0x69C527fC77291722b52649E45c838e41be8Bf5d5"
	}
	if cfg.GMX.OrderVault == "" {
		cfg.GMX.OrderVault = "0x31eF83a530Fde1B38EE9A18093A333D8Bbbc40D5"
	}
	if cfg.GMX.WrappedNativeToken == "" {
		cfg.GMX.WrappedNativeToken = "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"
	}
	if cfg.GMX.ExecutionGasLimit == 0 {
		cfg.GMX.ExecutionGasLimit = 5_000_000
	}
	if cfg.GMX.ExecutionFeeBuffer == 0 {
		cfg.GMX.ExecutionFeeBuffer = 1.3
	}
	if cfg.Spot.BaseURL == "" {
		cfg.Spot.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.Spot.CoinID == "" {
		cfg.Spot.CoinID = "ethereum"
	}
	if cfg.Spot.VsCurrency == "" {
		cfg.Spot.VsCurrency = "usd"
	}
	if cfg.Spot.Timeout == 0 {
		cfg.Spot.Timeout = 10 * time.Second
	}
	if cfg.History.BaseURL == "" {
		cfg.History.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.History.Symbol == "" {
		cfg.History.Symbol = "ETH-USD"
	}
	if cfg.History.Range == "" {
		cfg.History.Range = "1mo"
	}
	if cfg.History.Interval == "" {
		cfg.History.Interval = "15m"
	}
	if cfg.History.Timeout == 0 {
		cfg.History.Timeout = 20 * time.Second
	}
	if cfg.History.StreamURL == "" {
		cfg.History.StreamURL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.History.StreamSymbol == "" {
		cfg.History.StreamSymbol = "ethusdt"
	}
	if cfg.History.StreamDelay == 0 {
		cfg.History.StreamDelay = 3 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/gmx-rsi-bot.db"
	}
	if cfg.Strategy.RSIPeriod == 0 {
		cfg.Strategy.RSIPeriod = 14
	}
	if cfg.Strategy.LongBelow == 0 {
		cfg.Strategy.LongBelow = 41
	}
	if cfg.Strategy.ShortAbove == 0 {
		cfg.Strategy.ShortAbove = 60
	}
	if cfg.Strategy.WindowSize == 0 {
		cfg.Strategy.WindowSize = 200
	}
	if cfg.Strategy.SampleInterval == 0 {
		cfg.Strategy.SampleInterval = 15 * time.Minute
	}
	if cfg.Strategy.VolumeMAPeriod == 0 {
		cfg.Strategy.VolumeMAPeriod = 200
	}
	if cfg.Strategy.OpenFraction == 0 {
		cfg.Strategy.OpenFraction = 0.1
	}
	if cfg.Strategy.CloseFraction == 0 {
		cfg.Strategy.CloseFraction = 0.1
	}
	if cfg.Strategy.Leverage == 0 {
		cfg.Strategy.Leverage = 5
	}
	if cfg.Strategy.SlippagePercent == 0 {
		cfg.Strategy.SlippagePercent = 0.01
	}
	if cfg.Strategy.CollateralFraction == 0 {
		cfg.Strategy.CollateralFraction = 0.01
	}
	if cfg.Strategy.CollateralDecimals == 0 {
		cfg.Strategy.CollateralDecimals = 6
	}
	if cfg.Strategy.PollInterval == 0 {
		cfg.Strategy.PollInterval = 300 * time.Second
	}
	if cfg.Strategy.MaxPriceDeviation == 0 {
		cfg.Strategy.MaxPriceDeviation = 0.2
	}
	if cfg.Strategy.DebugMode == nil {
		debug := true
		cfg.Strategy.DebugMode = &debug
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = 60 * time.Second
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = 10 * time.Minute
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 5
	}
	if cfg.Retry.CircuitCooldown == 0 {
		cfg.Retry.CircuitCooldown = 30 * time.Minute
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 10 * time.Second
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		cfg.RPC.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("TIMESCALE_DSN")); v != "" {
		cfg.Timescale.DSN = v
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.RPC.URL) == "" {
		return errors.New("rpc.url (or RPC_URL) is required")
	}
	if cfg.Strategy.RSIPeriod < 2 {
		return errors.New("strategy.rsi_period must be >= 2")
	}
	if cfg.Strategy.LongBelow >= cfg.Strategy.ShortAbove {
		return fmt.Errorf("strategy.long_below %.2f must be below strategy.short_above %.2f", cfg.Strategy.LongBelow, cfg.Strategy.ShortAbove)
	}
	if cfg.Strategy.WindowSize <= cfg.Strategy.RSIPeriod {
		return errors.New("strategy.window_size must exceed strategy.rsi_period")
	}
	if cfg.Strategy.SampleInterval < 0 || cfg.Strategy.PollInterval < 0 {
		return errors.New("strategy intervals must be >= 0")
	}
	if !isFraction(cfg.Strategy.OpenFraction) || !isFraction(cfg.Strategy.CloseFraction) {
		return errors.New("strategy.open_fraction and strategy.close_fraction must be in (0, 1]")
	}
	if !isFraction(cfg.Strategy.SlippagePercent) || !isFraction(cfg.Strategy.CollateralFraction) {
		return errors.New("strategy.slippage_percent and strategy.collateral_fraction must be in (0, 1]")
	}
	if !isFraction(cfg.Strategy.MaxPriceDeviation) {
		return errors.New("strategy.max_price_deviation must be in (0, 1]")
	}
	if cfg.Strategy.Leverage < 1 {
		return errors.New("strategy.leverage must be >= 1")
	}
	if cfg.Strategy.CollateralDecimals < 0 || cfg.GMX.PriceDecimals < 0 {
		return errors.New("decimals must be >= 0")
	}
	if cfg.Retry.InitialBackoff < 0 || cfg.Retry.MaxBackoff < 0 || cfg.Retry.CircuitCooldown < 0 {
		return errors.New("retry durations must be >= 0")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if cfg.Risk.MaxNotionalUSD < 0 || cfg.Risk.MinBalanceUSD < 0 {
		return errors.New("risk limits must be >= 0")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn (or TIMESCALE_DSN) is required when timescale is enabled")
	}
	return nil
}

func isFraction(v float64) bool {
	return v > 0 && v <= 1
}
