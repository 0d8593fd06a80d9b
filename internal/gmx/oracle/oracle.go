package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"gmx-rsi-bot/internal/gmx"
)

var (
	ErrSymbolNotFound = errors.New("oracle symbol not found")
	ErrTokenNotFound  = errors.New("oracle token not found")
)

// pricePrecision is the fixed-point precision of GMX oracle prices per unit
// of token: a token with d decimals is quoted with 30-d decimals.
const pricePrecision = 30

// Price is one signed oracle entry. Max and min are fixed-point integers.
type Price struct {
	Symbol       string
	Token        common.Address
	MaxPriceFull *big.Int
	MinPriceFull *big.Int
}

// MidRaw is (max+min)/2 in the oracle's fixed-point units.
func (p Price) MidRaw() *big.Int {
	sum := new(big.Int).Add(p.MaxPriceFull, p.MinPriceFull)
	return sum.Quo(sum, big.NewInt(2))
}

// Mid converts (max+min)/2 to a float using the given decimal scaling.
func (p Price) Mid(decimals int32) float64 {
	maxP := decimal.NewFromBigInt(p.MaxPriceFull, -decimals)
	minP := decimal.NewFromBigInt(p.MinPriceFull, -decimals)
	return maxP.Add(minP).Div(decimal.NewFromInt(2)).InexactFloat64()
}

type Prices map[common.Address]Price

func (p Prices) ByToken(token common.Address) (Price, error) {
	price, ok := p[token]
	if !ok {
		return Price{}, fmt.Errorf("%s: %w", token.Hex(), ErrTokenNotFound)
	}
	return price, nil
}

// BySymbol returns the matching entry with the lowest token address, so
// duplicate symbols resolve the same way on every call.
func (p Prices) BySymbol(symbol string) (Price, error) {
	var (
		best  Price
		found bool
	)
	for addr, price := range p {
		if !strings.EqualFold(price.Symbol, symbol) {
			continue
		}
		if !found || bytes.Compare(addr.Bytes(), best.Token.Bytes()) < 0 {
			best, found = price, true
		}
	}
	if !found {
		return Price{}, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
	}
	return best, nil
}

type signedPricesResponse struct {
	SignedPrices []struct {
		TokenSymbol  string `json:"tokenSymbol"`
		TokenAddress string `json:"tokenAddress"`
		MaxPriceFull string `json:"maxPriceFull"`
		MinPriceFull string `json:"minPriceFull"`
	} `json:"signedPrices"`
}

type Client struct {
	api      *gmx.Client
	decimals int32
}

// New returns an oracle client. A positive decimals overrides the per-token
// scale of 30 minus the token's decimals.
func New(api *gmx.Client, decimals int32) *Client {
	return &Client{api: api, decimals: decimals}
}

// Decimals is the price scale used for a token with tokenDecimals decimals.
func (c *Client) Decimals(tokenDecimals int) int32 {
	if c.decimals > 0 {
		return c.decimals
	}
	if tokenDecimals <= 0 || tokenDecimals >= pricePrecision {
		return pricePrecision - 18
	}
	return int32(pricePrecision - tokenDecimals)
}

// Latest fetches /signed_prices/latest keyed by token address. Entries with
// unparseable prices are dropped.
func (c *Client) Latest(ctx context.Context) (Prices, error) {
	var payload signedPricesResponse
	if err := c.api.Get(ctx, "/signed_prices/latest", &payload); err != nil {
		return nil, fmt.Errorf("fetch oracle prices: %w", err)
	}
	out := make(Prices, len(payload.SignedPrices))
	for _, raw := range payload.SignedPrices {
		maxP, ok := new(big.Int).SetString(strings.TrimSpace(raw.MaxPriceFull), 10)
		if !ok {
			continue
		}
		minP, ok := new(big.Int).SetString(strings.TrimSpace(raw.MinPriceFull), 10)
		if !ok {
			continue
		}
		addr := common.HexToAddress(raw.TokenAddress)
		out[addr] = Price{
			Symbol:       raw.TokenSymbol,
			Token:        addr,
			MaxPriceFull: maxP,
			MinPriceFull: minP,
		}
	}
	return out, nil
}

// PriceForToken returns the scaled mid price and the raw entry for token.
func (c *Client) PriceForToken(ctx context.Context, token common.Address, tokenDecimals int) (float64, Price, error) {
	prices, err := c.Latest(ctx)
	if err != nil {
		return 0, Price{}, err
	}
	price, err := prices.ByToken(token)
	if err != nil {
		return 0, Price{}, err
	}
	return price.Mid(c.Decimals(tokenDecimals)), price, nil
}

// PriceForSymbol is PriceForToken keyed by symbol instead of address.
func (c *Client) PriceForSymbol(ctx context.Context, symbol string, tokenDecimals int) (float64, Price, error) {
	prices, err := c.Latest(ctx)
	if err != nil {
		return 0, Price{}, err
	}
	price, err := prices.BySymbol(symbol)
	if err != nil {
		return 0, Price{}, err
	}
	return price.Mid(c.Decimals(tokenDecimals)), price, nil
}
