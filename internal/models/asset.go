// Package models defines the core domain entities: assets, quick markets,
// price samples and the state derived from them.
package models

import (
	"fmt"
	"strings"
	"time"
)

// QuickMarketPrefix marks market ids that belong to the 15 minute UP/DOWN family.
const QuickMarketPrefix = "q15_"

// Asset is a crypto asset a quick market can be opened on.
// ID is the CoinGecko identifier used against the price source; Key is the
// short form used in market ids ("ton" for "the-open-network").
type Asset struct {
	ID          string  `json:"id" mapstructure:"id"`
	Key         string  `json:"key" mapstructure:"key"`
	Name        string  `json:"name" mapstructure:"name"`
	Symbol      string  `json:"symbol" mapstructure:"symbol"`
	Image       string  `json:"image,omitempty" mapstructure:"image"`
	Sensitivity float64 `json:"sensitivity" mapstructure:"sensitivity"`
}

// MarketID returns the quick market id for the asset.
func (a Asset) MarketID() string {
	key := a.Key
	if key == "" {
		key = a.ID
	}
	return QuickMarketPrefix + key
}

// DefaultAssets is the built-in catalog of quick market assets.
func DefaultAssets() []Asset {
	return []Asset{
		{ID: "bitcoin", Key: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Sensitivity: 8,
			Image: "https://assets.coingecko.com/coins/images/1/large/bitcoin.png"},
		{ID: "ethereum", Key: "ethereum", Name: "Ethereum", Symbol: "ETH", Sensitivity: 10,
			Image: "https://assets.coingecko.com/coins/images/279/large/ethereum.png"},
		{ID: "solana", Key: "solana", Name: "Solana", Symbol: "SOL", Sensitivity: 14,
			Image: "https://assets.coingecko.com/coins/images/4128/large/solana.png"},
		{ID: "binancecoin", Key: "binancecoin", Name: "BNB", Symbol: "BNB", Sensitivity: 12,
			Image: "https://assets.coingecko.com/coins/images/825/large/binance-coin-logo.png"},
		{ID: "the-open-network", Key: "ton", Name: "TON", Symbol: "TON", Sensitivity: 14,
			Image: "https://assets.coingecko.com/coins/images/17980/large/ton_symbol.png"},
	}
}

// Catalog resolves market ids to assets.
type Catalog struct {
	assets []Asset
	byID   map[string]int
}

// NewCatalog builds a catalog; a later entry with a duplicate market id
// replaces the earlier one in place.
func NewCatalog(assets []Asset) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(assets))}
	for _, a := range assets {
		id := a.MarketID()
		if i, exists := c.byID[id]; exists {
			c.assets[i] = a
			continue
		}
		c.byID[id] = len(c.assets)
		c.assets = append(c.assets, a)
	}
	return c
}

// Assets returns the catalog in declaration order.
func (c *Catalog) Assets() []Asset {
	out := make([]Asset, len(c.assets))
	copy(out, c.assets)
	return out
}

// Resolve maps a market id ("q15_bitcoin") or a bare asset key/id to its asset.
func (c *Catalog) Resolve(marketID string) (Asset, error) {
	if i, ok := c.byID[marketID]; ok {
		return c.assets[i], nil
	}
	if !strings.HasPrefix(marketID, QuickMarketPrefix) {
		if i, ok := c.byID[QuickMarketPrefix+marketID]; ok {
			return c.assets[i], nil
		}
		for _, a := range c.assets {
			if a.ID == marketID {
				return a, nil
			}
		}
	}
	return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, marketID)
}

// Open creates a fresh quick market for the asset, opened at now.
func (c *Catalog) Open(marketID string, now time.Time, duration time.Duration) (QuickMarket, error) {
	asset, err := c.Resolve(marketID)
	if err != nil {
		return QuickMarket{}, err
	}
	return NewQuickMarket(asset, now, duration), nil
}
