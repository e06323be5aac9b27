package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/session"
)

func readySnapshot() models.Snapshot {
	return models.Snapshot{
		SessionID:    "s1",
		MarketID:     "q15_bitcoin",
		Title:        "BTC up in the next 15 minutes?",
		SecondsLeft:  754,
		StartPrice:   64000,
		CurrentPrice: 64640,
		Delta:        0.01,
		Ready:        true,
		Odds:         models.OddsView{PUp: 0.58, PDown: 0.42, OddUp: 1.72, OddDown: 2.38},
		Ticks:        4,
	}
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).PrintSnapshot(readySnapshot())
	out := buf.String()

	for _, want := range []string{
		"BTC up in the next 15 minutes?", "[12:34 left]",
		"$64,000", "$64,640", "1.00%", "58% @ 1.72x", "42% @ 2.38x",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPrintSnapshot_NotReady(t *testing.T) {
	var buf bytes.Buffer
	snap := models.Snapshot{Title: "SOL up in the next 15 minutes?", SecondsLeft: 900, Odds: models.DefaultOdds()}
	New(&buf).PrintSnapshot(snap)
	out := buf.String()

	assert.Contains(t, out, "[15:00 left]")
	assert.Contains(t, out, "— @ 2.00x")
}

func TestHandleSnapshot_SkipsCountdownOnlyUpdates(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	snap := readySnapshot()

	c.HandleSnapshot(snap)
	first := buf.Len()
	assert.Positive(t, first)

	snap.SecondsLeft--
	c.HandleSnapshot(snap)
	assert.Equal(t, first, buf.Len())

	snap.Ticks++
	c.HandleSnapshot(snap)
	assert.Greater(t, buf.Len(), first)

	n := buf.Len()
	snap.SessionID = "s2"
	c.HandleSnapshot(snap)
	assert.Greater(t, buf.Len(), n)
}

func TestPrintMarkets(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).PrintMarkets([]session.Listing{
		{MarketID: "q15_bitcoin", Title: "BTC up in the next 15 minutes?", LastPrice: 64000, Cached: true},
		{MarketID: "q15_ton", Title: "TON up in the next 15 minutes?"},
	})
	out := buf.String()
	assert.Contains(t, out, "q15_bitcoin")
	assert.Contains(t, out, "$64,000")
	assert.Contains(t, out, "q15_ton")
	assert.Equal(t, 1, strings.Count(out, "—"))
}

func TestPrintExpiry(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).PrintExpiry(models.Expiry{
		Market:     models.QuickMarket{Title: "ETH up in the next 15 minutes?"},
		StartPrice: 100,
		FinalPrice: 99,
		Delta:      -0.01,
		ClosedAt:   time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC),
	})
	out := buf.String()
	assert.Contains(t, out, "closed at 12:15:00")
	assert.Contains(t, out, "DOWN")
	assert.Contains(t, out, "-1.00%")
}
