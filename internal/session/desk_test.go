package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/quickodds/internal/models"
)

func newDesk(t *testing.T, src PriceSource, cache Board) (*Desk, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	d := NewDesk(models.NewCatalog(models.DefaultAssets()), src, cache, fastConfig())
	d.now = clk.Now
	t.Cleanup(func() { d.Close() })
	return d, clk
}

func TestDesk_OpenUnknownMarket(t *testing.T) {
	d, _ := newDesk(t, &blockingSource{price: 1}, nil)
	_, err := d.Open(context.Background(), "q15_dogecoin")
	assert.ErrorIs(t, err, models.ErrUnknownAsset)
	_, ok := d.Current()
	assert.False(t, ok)
}

func TestDesk_OpenReplacesCurrent(t *testing.T) {
	d, clk := newDesk(t, &blockingSource{price: 1}, nil)

	first, err := d.Open(context.Background(), "q15_bitcoin")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(15*time.Minute), first.Market().ClosesAt)

	second, err := d.Open(context.Background(), "ton")
	require.NoError(t, err)
	assert.False(t, first.Active())
	assert.True(t, second.Active())
	assert.Equal(t, "the-open-network", second.Market().Asset.ID)

	cur, ok := d.Current()
	require.True(t, ok)
	assert.Same(t, second, cur)

	assert.NoError(t, d.Close())
	err = d.Close()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, second.Active())
}

func TestDesk_OpenOutlivesRequestContext(t *testing.T) {
	d, _ := newDesk(t, &scriptedSource{results: []result{{price: 3}}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	s, err := d.Open(ctx, "q15_solana")
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool { return s.Snapshot().Ready }, waitFor, poll)
	assert.True(t, s.Active())
}

func TestDesk_SubscribersFollowSessions(t *testing.T) {
	d, _ := newDesk(t, &scriptedSource{results: []result{{price: 10}}}, nil)

	var seen atomic.Value
	d.Subscribe(func(s models.Snapshot) { seen.Store(s.MarketID) })

	_, err := d.Open(context.Background(), "q15_bitcoin")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return seen.Load() == "q15_bitcoin" }, waitFor, poll)

	_, err = d.Open(context.Background(), "q15_ethereum")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return seen.Load() == "q15_ethereum" }, waitFor, poll)
}

func TestDesk_ExpiryHook(t *testing.T) {
	cfg := fastConfig()
	cfg.MarketDuration = 2 * time.Second
	clk := newFakeClock()
	d := NewDesk(models.NewCatalog(models.DefaultAssets()), &blockingSource{price: 1}, nil, cfg)
	d.now = clk.Now
	t.Cleanup(func() { d.Close() })

	var fired atomic.Int32
	d.OnExpire(func(models.Expiry) { fired.Add(1) })
	_, err := d.Open(context.Background(), "q15_bitcoin")
	require.NoError(t, err)

	clk.Advance(3 * time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, waitFor, poll)
}

func TestDesk_Markets(t *testing.T) {
	cache := newFakeCache()
	cache.prices["bitcoin"] = 64000
	d, _ := newDesk(t, &blockingSource{price: 1}, cache)

	got, err := d.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "q15_bitcoin", got[0].MarketID)
	assert.Equal(t, "BTC up in the next 15 minutes?", got[0].Title)
	assert.True(t, got[0].Cached)
	assert.Equal(t, 64000.0, got[0].LastPrice)
	assert.False(t, got[1].Cached)
	assert.Equal(t, "q15_ton", got[4].MarketID)
}
