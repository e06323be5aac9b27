package models

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMarketDuration is the lifetime of a quick market.
const DefaultMarketDuration = 15 * time.Minute

// QuickMarket is a short-lived binary market asking whether the asset's price
// will be above its opening price when the market closes.
type QuickMarket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Asset       Asset     `json:"asset"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosesAt    time.Time `json:"closes_at"`
}

// NewQuickMarket builds a market on asset that closes duration after now.
func NewQuickMarket(asset Asset, now time.Time, duration time.Duration) QuickMarket {
	if duration <= 0 {
		duration = DefaultMarketDuration
	}
	minutes := int(duration / time.Minute)
	return QuickMarket{
		ID:    asset.MarketID(),
		Title: fmt.Sprintf("%s up in the next %d minutes?", asset.Symbol, minutes),
		Description: fmt.Sprintf("Quick %dm market. Predict whether %s will be higher than the start price when the timer ends.",
			minutes, asset.Symbol),
		Asset:    asset,
		OpenedAt: now,
		ClosesAt: now.Add(duration),
	}
}

// Duration returns the configured market lifetime.
func (m QuickMarket) Duration() time.Duration {
	return m.ClosesAt.Sub(m.OpenedAt)
}

// Validate checks market field constraints.
func (m *QuickMarket) Validate() error {
	if m.ID == "" {
		return errors.New("market ID must not be empty")
	}
	if m.Title == "" {
		return errors.New("market title must not be empty")
	}
	if m.Asset.ID == "" {
		return errors.New("market asset ID must not be empty")
	}
	if m.OpenedAt.IsZero() {
		return errors.New("opened at must be set")
	}
	if !m.ClosesAt.After(m.OpenedAt) {
		return errors.New("closes at must be after opened at")
	}
	return nil
}
