package gmx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var ErrMarketNotFound = errors.New("market not found")

type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int
}

// Market is a GMX v2 perp market. Symbol is the index token symbol.
type Market struct {
	Address    common.Address
	Symbol     string
	IndexToken common.Address
	// IndexDecimals sets the oracle price scale: 30 minus these decimals.
	IndexDecimals int
	LongToken     common.Address
	ShortToken    common.Address
	LongSymbol    string
	ShortSymbol   string
}

// Name renders the market the way the GMX UI labels it, e.g. "ETH/USD [WETH-USDC]".
func (m Market) Name() string {
	return fmt.Sprintf("%s/USD [%s-%s]", m.Symbol, m.LongSymbol, m.ShortSymbol)
}

type tokensResponse struct {
	Tokens []struct {
		Symbol   string `json:"symbol"`
		Address  string `json:"address"`
		Decimals int    `json:"decimals"`
	} `json:"tokens"`
}

type marketsResponse struct {
	Markets []struct {
		MarketToken string `json:"marketToken"`
		IndexToken  string `json:"indexToken"`
		LongToken   string `json:"longToken"`
		ShortToken  string `json:"shortToken"`
		IsListed    *bool  `json:"isListed"`
	} `json:"markets"`
}

func (c *Client) Tokens(ctx context.Context) (map[common.Address]Token, error) {
	var payload tokensResponse
	if err := c.Get(ctx, "/tokens", &payload); err != nil {
		return nil, fmt.Errorf("fetch tokens: %w", err)
	}
	out := make(map[common.Address]Token, len(payload.Tokens))
	for _, tok := range payload.Tokens {
		if !common.IsHexAddress(tok.Address) {
			continue
		}
		addr := common.HexToAddress(tok.Address)
		out[addr] = Token{Symbol: tok.Symbol, Address: addr, Decimals: tok.Decimals}
	}
	return out, nil
}

// Markets joins /markets with /tokens. Swap-only markets (no index token)
// and unlisted markets are skipped.
func (c *Client) Markets(ctx context.Context) (map[common.Address]Market, error) {
	tokens, err := c.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	var payload marketsResponse
	if err := c.Get(ctx, "/markets", &payload); err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	out := make(map[common.Address]Market, len(payload.Markets))
	for _, raw := range payload.Markets {
		if raw.IsListed != nil && !*raw.IsListed {
			continue
		}
		if !common.IsHexAddress(raw.MarketToken) || !common.IsHexAddress(raw.IndexToken) {
			continue
		}
		index := common.HexToAddress(raw.IndexToken)
		if index == (common.Address{}) {
			continue
		}
		indexTok, ok := tokens[index]
		if !ok {
			c.log.Debug("market index token unknown", zap.String("market", raw.MarketToken))
			continue
		}
		long := common.HexToAddress(raw.LongToken)
		short := common.HexToAddress(raw.ShortToken)
		addr := common.HexToAddress(raw.MarketToken)
		out[addr] = Market{
			Address:       addr,
			Symbol:        indexTok.Symbol,
			IndexToken:    index,
			IndexDecimals: indexTok.Decimals,
			LongToken:     long,
			ShortToken:    short,
			LongSymbol:    tokens[long].Symbol,
			ShortSymbol:   tokens[short].Symbol,
		}
	}
	return out, nil
}

// FindBySymbol picks the market for symbol. When several pools share an index
// token, a USDC-backed pool wins, then the lowest market address.
func FindBySymbol(markets map[common.Address]Market, symbol string) (Market, error) {
	var matches []Market
	for _, m := range markets {
		if strings.EqualFold(m.Symbol, symbol) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return Market{}, fmt.Errorf("%s: %w", symbol, ErrMarketNotFound)
	}
	sort.Slice(matches, func(i, j int) bool {
		ui, uj := isUSDC(matches[i].ShortSymbol), isUSDC(matches[j].ShortSymbol)
		if ui != uj {
			return ui
		}
		return bytes.Compare(matches[i].Address.Bytes(), matches[j].Address.Bytes()) < 0
	})
	return matches[0], nil
}

func isUSDC(symbol string) bool {
	return strings.EqualFold(symbol, "USDC")
}
