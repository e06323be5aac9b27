// Package odds turns price drift since market open into implied probabilities
// and payout multipliers.
//
// The curve is a heuristic stand-in for an order book or AMM: probability
// moves linearly with fractional drift, scaled by a per-asset sensitivity K,
// and is clamped so both sides always remain quoted. Neither the clamp bounds
// nor K are calibrated against real volatility; they are product defaults.
package odds

import (
	"math"

	"github.com/rewired-gh/quickodds/internal/models"
)

// Config holds the calculator constants.
type Config struct {
	// Sensitivity maps asset ids to K. Higher K moves odds faster per unit of drift.
	Sensitivity        map[string]float64
	DefaultSensitivity float64
	Floor              float64
	Ceiling            float64
}

// DefaultConfig returns the stock sensitivity table and clamp bounds.
func DefaultConfig() Config {
	table := make(map[string]float64)
	for _, a := range models.DefaultAssets() {
		table[a.ID] = a.Sensitivity
	}
	return Config{
		Sensitivity:        table,
		DefaultSensitivity: 10,
		Floor:              0.05,
		Ceiling:            0.95,
	}
}

// ConfigFromAssets builds a sensitivity table from a catalog. Assets with a
// non-positive sensitivity fall back to the default.
func ConfigFromAssets(assets []models.Asset, defaultK, floor, ceiling float64) Config {
	table := make(map[string]float64, len(assets))
	for _, a := range assets {
		if a.Sensitivity > 0 {
			table[a.ID] = a.Sensitivity
		}
	}
	return Config{Sensitivity: table, DefaultSensitivity: defaultK, Floor: floor, Ceiling: ceiling}
}

// Calculator is a pure function of asset id and market state.
type Calculator struct {
	cfg Config
}

// New creates a calculator. Missing or inverted bounds are replaced by the defaults.
func New(cfg Config) *Calculator {
	def := DefaultConfig()
	if cfg.DefaultSensitivity <= 0 {
		cfg.DefaultSensitivity = def.DefaultSensitivity
	}
	if cfg.Floor <= 0 || cfg.Ceiling >= 1 || cfg.Floor >= cfg.Ceiling {
		cfg.Floor, cfg.Ceiling = def.Floor, def.Ceiling
	}
	if cfg.Sensitivity == nil {
		cfg.Sensitivity = def.Sensitivity
	}
	return &Calculator{cfg: cfg}
}

// Sensitivity returns K for the asset and whether it came from the table.
func (c *Calculator) Sensitivity(assetID string) (float64, bool) {
	if k, ok := c.cfg.Sensitivity[assetID]; ok && k > 0 {
		return k, true
	}
	return c.cfg.DefaultSensitivity, false
}

// Compute derives the odds for a market. Without an asset id, or before both
// start and current prices are known, it returns the even default.
func (c *Calculator) Compute(assetID string, state models.MarketState) models.OddsView {
	if assetID == "" || !state.Ready() {
		return models.DefaultOdds()
	}
	k, _ := c.Sensitivity(assetID)
	delta := state.Delta()
	if math.IsNaN(delta) {
		return models.DefaultOdds()
	}
	pUp := clamp(0.5+delta*k, c.cfg.Floor, c.cfg.Ceiling)
	pDown := 1 - pUp
	return models.OddsView{
		PUp:     pUp,
		PDown:   pDown,
		OddUp:   1 / pUp,
		OddDown: 1 / pDown,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
