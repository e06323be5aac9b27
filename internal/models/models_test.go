package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestQuickMarketValidate(t *testing.T) {
	now := time.Now()
	btc := DefaultAssets()[0]

	tests := []struct {
		name    string
		market  QuickMarket
		wantErr bool
	}{
		{
			name:    "valid market",
			market:  NewQuickMarket(btc, now, 15*time.Minute),
			wantErr: false,
		},
		{
			name: "empty ID",
			market: QuickMarket{
				Title:    "BTC up in the next 15 minutes?",
				Asset:    btc,
				OpenedAt: now,
				ClosesAt: now.Add(time.Minute),
			},
			wantErr: true,
		},
		{
			name: "missing asset",
			market: QuickMarket{
				ID:       "q15_bitcoin",
				Title:    "BTC up in the next 15 minutes?",
				OpenedAt: now,
				ClosesAt: now.Add(time.Minute),
			},
			wantErr: true,
		},
		{
			name: "closes before open",
			market: QuickMarket{
				ID:       "q15_bitcoin",
				Title:    "BTC up in the next 15 minutes?",
				Asset:    btc,
				OpenedAt: now,
				ClosesAt: now.Add(-time.Second),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.market.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("QuickMarket.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewQuickMarket(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewQuickMarket(DefaultAssets()[4], now, 0)

	if m.ID != "q15_ton" {
		t.Errorf("ID = %q, want q15_ton", m.ID)
	}
	if m.Asset.ID != "the-open-network" {
		t.Errorf("asset ID = %q", m.Asset.ID)
	}
	if m.Title != "TON up in the next 15 minutes?" {
		t.Errorf("Title = %q", m.Title)
	}
	if !m.ClosesAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("ClosesAt = %v", m.ClosesAt)
	}
}

func TestCatalogResolve(t *testing.T) {
	c := NewCatalog(DefaultAssets())

	for _, id := range []string{"q15_ton", "ton", "the-open-network"} {
		a, err := c.Resolve(id)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", id, err)
		}
		if a.Symbol != "TON" {
			t.Errorf("Resolve(%q) symbol = %q", id, a.Symbol)
		}
	}

	if _, err := c.Resolve("q15_dogecoin"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestCatalogDuplicateReplaces(t *testing.T) {
	assets := DefaultAssets()
	override := assets[0]
	override.Sensitivity = 3
	c := NewCatalog(append(assets, override))

	if got := len(c.Assets()); got != 5 {
		t.Fatalf("got %d assets, want 5", got)
	}
	a, _ := c.Resolve("q15_bitcoin")
	if a.Sensitivity != 3 {
		t.Errorf("sensitivity = %v, want 3", a.Sensitivity)
	}
}

func TestMarketState(t *testing.T) {
	var s MarketState
	if s.Ready() || s.Delta() != 0 {
		t.Fatal("zero state must not be ready")
	}
	if !s.Observe(50000) {
		t.Error("first observation should set start price")
	}
	if s.Observe(50500) {
		t.Error("second observation must not reset start price")
	}
	if s.StartPrice != 50000 || s.CurrentPrice != 50500 {
		t.Errorf("state = %+v", s)
	}
	if math.Abs(s.Delta()-0.01) > 1e-12 {
		t.Errorf("delta = %v, want 0.01", s.Delta())
	}
	if !s.Ready() {
		t.Error("expected ready")
	}
}

func TestValidatePrice(t *testing.T) {
	for _, p := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := ValidatePrice(p); !errors.Is(err, ErrInvalidSample) {
			t.Errorf("ValidatePrice(%v) = %v, want ErrInvalidSample", p, err)
		}
	}
	if err := ValidatePrice(0.0001); err != nil {
		t.Errorf("ValidatePrice(0.0001) = %v", err)
	}
}

func TestExpiryDirection(t *testing.T) {
	tests := []struct {
		start, final float64
		want         string
	}{
		{100, 101, "UP"},
		{100, 99, "DOWN"},
		{100, 100, "FLAT"},
		{0, 100, ""},
	}
	for _, tt := range tests {
		e := Expiry{StartPrice: tt.start, FinalPrice: tt.final}
		if got := e.Direction(); got != tt.want {
			t.Errorf("Direction(%v→%v) = %q, want %q", tt.start, tt.final, got, tt.want)
		}
	}
}
