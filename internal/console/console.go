// Package console renders market snapshots as tables for the -watch mode.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/rewired-gh/quickodds/internal/format"
	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/session"
)

// Console writes tables to out. Printing only happens when a new sample
// lands or a different session starts, not on every countdown tick.
type Console struct {
	out io.Writer

	mu        sync.Mutex
	sessionID string
	ticks     int
}

// New creates a console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out, ticks: -1}
}

// HandleSnapshot prints snap if it carries a new sample. It is safe to use as
// a desk subscriber.
func (c *Console) HandleSnapshot(snap models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.SessionID == c.sessionID && snap.Ticks == c.ticks {
		return
	}
	c.sessionID, c.ticks = snap.SessionID, snap.Ticks
	c.printSnapshot(snap)
}

// PrintSnapshot prints snap unconditionally.
func (c *Console) PrintSnapshot(snap models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printSnapshot(snap)
}

func (c *Console) printSnapshot(snap models.Snapshot) {
	fmt.Fprintf(c.out, "\n%s  [%s left]\n", snap.Title, format.Countdown(snap.SecondsLeft))

	start := format.Placeholder
	if snap.StartPrice > 0 {
		start = format.Price(snap.StartPrice)
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Start", "Current", "Change", "Up", "Down", "Ticks")
	_ = table.Append(
		start,
		format.Price(snap.CurrentPrice),
		format.Delta(snap.Delta, snap.Ready),
		format.Implied(snap.Odds.PUp, snap.Ready)+" @ "+format.Multiplier(snap.Odds.OddUp),
		format.Implied(snap.Odds.PDown, snap.Ready)+" @ "+format.Multiplier(snap.Odds.OddDown),
		fmt.Sprintf("%d", snap.Ticks),
	)
	_ = table.Render()
}

// PrintMarkets prints the catalog with cached prices.
func (c *Console) PrintMarkets(listings []session.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Title", "Last price")
	for i, l := range listings {
		price := format.Placeholder
		if l.Cached {
			price = format.Price(l.LastPrice)
		}
		_ = table.Append(fmt.Sprintf("%d", i+1), l.MarketID, l.Title, price)
	}
	_ = table.Render()
}

// PrintExpiry prints the close of a market.
func (c *Console) PrintExpiry(e models.Expiry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := e.Direction()
	if result == "" {
		result = format.Placeholder
	}
	ready := result != format.Placeholder
	fmt.Fprintf(c.out, "\n%s closed at %s\n", e.Market.Title, e.ClosedAt.Format("15:04:05"))
	table := tablewriter.NewWriter(c.out)
	table.Header("Result", "Start", "Final", "Change")
	_ = table.Append(result, format.Price(e.StartPrice), format.Price(e.FinalPrice), format.Delta(e.Delta, ready))
	_ = table.Render()
}
