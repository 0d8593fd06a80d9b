package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"gmx-rsi-bot/internal/account"
	"gmx-rsi-bot/internal/config"
	"gmx-rsi-bot/internal/gmx"
	"gmx-rsi-bot/internal/gmx/exchange"
	"gmx-rsi-bot/internal/gmx/oracle"
	"gmx-rsi-bot/internal/logging"
	"gmx-rsi-bot/internal/spot"
	"gmx-rsi-bot/internal/strategy"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	defaultVerifyNotional = 5.0
	defaultVerifyEnvFile  = ".env"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "build and estimate an open order without broadcasting")
	live := flag.Bool("live", false, "broadcast the verify order")
	side := flag.String("side", "long", "order side for -dry-run or -live: long or short")
	notional := flag.Float64("notional", defaultVerifyNotional, "unleveraged USD notional of the verify order")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()
	ctx := context.Background()

	api := gmx.NewClient(cfg.GMX.APIURL, cfg.GMX.Timeout, log)
	markets, err := api.Markets(ctx)
	if err != nil {
		fatal(err)
	}
	selected, err := gmx.FindBySymbol(markets, cfg.GMX.MarketSymbol)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("market: %s address=%s index=%s long=%s short=%s\n",
		selected.Name(), selected.Address.Hex(), selected.IndexToken.Hex(), selected.LongToken.Hex(), selected.ShortToken.Hex())

	prices := oracle.New(api, cfg.GMX.PriceDecimals)
	price, raw, err := prices.PriceForToken(ctx, selected.IndexToken, selected.IndexDecimals)
	if errors.Is(err, oracle.ErrTokenNotFound) {
		price, raw, err = prices.PriceForSymbol(ctx, selected.Symbol, selected.IndexDecimals)
	}
	if err != nil {
		fatal(err)
	}
	fmt.Printf("oracle: symbol=%s scale=%d mid=%.6f raw_max=%s raw_min=%s\n", selected.Symbol, prices.Decimals(selected.IndexDecimals), price, raw.MaxPriceFull, raw.MinPriceFull)

	spotClient := spot.New(cfg.Spot, log)
	if spotPrice, ok := spotClient.Price(ctx); ok {
		fmt.Printf("spot: %s/%s=%.4f\n", cfg.Spot.CoinID, cfg.Spot.VsCurrency, spotPrice)
	} else {
		fmt.Println("spot: unavailable")
	}

	wallet := strings.TrimSpace(os.Getenv("WALLET_ADDRESS"))
	if wallet == "" && !*dryRun && !*live {
		return
	}
	rpc, err := ethclient.DialContext(ctx, cfg.RPC.URL)
	if err != nil {
		fatal(fmt.Errorf("dial rpc: %w", err))
	}
	defer rpc.Close()

	var signer *exchange.Signer
	if *dryRun || *live {
		privateKey := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
		if privateKey == "" {
			fatal(errors.New("PRIVATE_KEY is required for -dry-run and -live"))
		}
		signer, err = exchange.NewSigner(privateKey, cfg.RPC.ChainID)
		if err != nil {
			fatal(err)
		}
		if err := signer.CheckWallet(wallet); err != nil {
			fatal(err)
		}
		wallet = signer.Address().Hex()
	}
	if !common.IsHexAddress(wallet) {
		fatal(fmt.Errorf("invalid WALLET_ADDRESS %q", wallet))
	}
	acct := account.New(rpc, spotClient, common.HexToAddress(wallet), log)
	if bal, err := acct.Balance(ctx); err != nil {
		fmt.Printf("balance: unavailable (%v)\n", err)
	} else {
		fmt.Printf("balance: address=%s native=%.6f usd=%.2f\n", wallet, bal.Native, bal.USD)
	}
	if signer == nil {
		return
	}

	isLong := true
	switch strings.ToLower(strings.TrimSpace(*side)) {
	case "long":
	case "short":
		isLong = false
	default:
		fatal(fmt.Errorf("unknown side %q", *side))
	}
	if *notional <= 0 {
		fatal(errors.New("notional must be > 0"))
	}
	collateralToken, indexToken := selected.ShortToken, selected.IndexToken
	if !isLong {
		collateralToken, indexToken = selected.LongToken, selected.ShortToken
	}
	req := exchange.OrderRequest{
		Market:           selected.Address,
		CollateralToken:  collateralToken,
		IndexToken:       indexToken,
		IsLong:           isLong,
		Increase:         true,
		SizeDeltaUSD:     exchange.USDToGMX(strategy.Leveraged(*notional, cfg.Strategy.Leverage)),
		CollateralAmount: exchange.ScaleAmount(price*cfg.Strategy.CollateralFraction, cfg.Strategy.CollateralDecimals),
		SlippagePercent:  cfg.Strategy.SlippagePercent,
		AcceptablePrice:  raw.MidRaw(),
		Debug:            !*live,
	}
	client, err := exchange.NewClient(rpc, signer, exchange.Config{
		ExchangeRouter:     common.HexToAddress(cfg.GMX.ExchangeRouter),
		OrderVault:         common.HexToAddress(cfg.GMX.OrderVault),
		WrappedNativeToken: common.HexToAddress(cfg.GMX.WrappedNativeToken),
		ExecutionGasLimit:  cfg.GMX.ExecutionGasLimit,
		ExecutionFeeBuffer: cfg.GMX.ExecutionFeeBuffer,
	}, log)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("verify order: long=%t size_usd=%.2f collateral=%s acceptable_base=%s\n",
		isLong, strategy.Leveraged(*notional, cfg.Strategy.Leverage), req.CollateralAmount, req.AcceptablePrice)
	res, err := client.Submit(ctx, req)
	if err != nil {
		fatal(err)
	}
	if res.Debug {
		fmt.Printf("simulated: gas=%d estimate_failed=%t execution_fee=%s value=%s calldata_bytes=%d\n",
			res.GasEstimate, res.EstimateFailed, res.ExecutionFee, res.Value, len(res.Calldata))
		return
	}
	fmt.Printf("broadcast: tx=%s execution_fee=%s value=%s\n", res.TxHash.Hex(), res.ExecutionFee, res.Value)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
