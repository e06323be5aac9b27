package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
)

// Board is a price cache that can also answer bulk reads for listings.
type Board interface {
	PriceCache
	LastPrices(ctx context.Context, assetIDs []string) (map[string]float64, error)
}

// Listing is one row of the quick-market catalog.
type Listing struct {
	MarketID  string       `json:"market_id"`
	Title     string       `json:"title"`
	Asset     models.Asset `json:"asset"`
	LastPrice float64      `json:"last_price"`
	Cached    bool         `json:"cached"`
}

// ErrNoSession is returned when an operation needs an open market view.
var ErrNoSession = fmt.Errorf("%w: no market is open", models.ErrNotFound)

// Desk holds the catalog and at most one open session. Subscribers and
// expiry hooks registered on the desk follow whichever session is open.
type Desk struct {
	catalog *models.Catalog
	source  PriceSource
	cache   Board
	cfg     Config
	now     func() time.Time

	mu      sync.Mutex
	current *Session
	unsub   func()

	subMu     sync.RWMutex
	subs      map[int]func(models.Snapshot)
	nextSub   int
	expireFns []func(models.Expiry)
}

// NewDesk creates a desk with no open session. cache may be nil.
func NewDesk(catalog *models.Catalog, source PriceSource, cache Board, cfg Config) *Desk {
	return &Desk{
		catalog: catalog,
		source:  source,
		cache:   cache,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		subs:    make(map[int]func(models.Snapshot)),
	}
}

// Catalog returns the markets the desk can open.
func (d *Desk) Catalog() *models.Catalog { return d.catalog }

// Markets lists every catalog market with its cached last price.
func (d *Desk) Markets(ctx context.Context) ([]Listing, error) {
	assets := d.catalog.Assets()
	prices := map[string]float64{}
	if d.cache != nil {
		ids := make([]string, len(assets))
		for i, a := range assets {
			ids[i] = a.ID
		}
		var err error
		if prices, err = d.cache.LastPrices(ctx, ids); err != nil {
			return nil, fmt.Errorf("failed to read cached prices: %w", err)
		}
	}

	now := d.now()
	out := make([]Listing, 0, len(assets))
	for _, a := range assets {
		m := models.NewQuickMarket(a, now, d.cfg.MarketDuration)
		p, ok := prices[a.ID]
		out = append(out, Listing{
			MarketID:  m.ID,
			Title:     m.Title,
			Asset:     a,
			LastPrice: p,
			Cached:    ok,
		})
	}
	return out, nil
}

// Open closes any open session and starts a fresh one for marketID. The
// session is not bound to ctx's cancellation; Close stops it.
func (d *Desk) Open(ctx context.Context, marketID string) (*Session, error) {
	market, err := d.catalog.Open(marketID, d.now(), d.cfg.MarketDuration)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()

	s := New(market, d.source, d.cache, d.cfg)
	s.now = d.now
	unsub := s.Subscribe(d.broadcast)
	s.OnExpire(d.expire)
	if err := s.Activate(context.WithoutCancel(ctx)); err != nil {
		unsub()
		return nil, fmt.Errorf("failed to activate %s: %w", market.ID, err)
	}
	d.current = s
	d.unsub = unsub
	return s, nil
}

// Close deactivates the open session, or returns ErrNoSession.
func (d *Desk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closeLocked() {
		return ErrNoSession
	}
	return nil
}

func (d *Desk) closeLocked() bool {
	if d.current == nil {
		return false
	}
	d.current.Deactivate()
	d.unsub()
	logger.Debug("Closed market view %s", d.current.Market().ID)
	d.current, d.unsub = nil, nil
	return true
}

// Current returns the open session, if any.
func (d *Desk) Current() (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, d.current != nil
}

// Snapshot returns the open session's state, if any.
func (d *Desk) Snapshot() (models.Snapshot, bool) {
	s, ok := d.Current()
	if !ok {
		return models.Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Subscribe registers fn for snapshots of whichever session is open.
func (d *Desk) Subscribe(fn func(models.Snapshot)) func() {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, id)
			d.subMu.Unlock()
		})
	}
}

// OnExpire registers fn for the expiry of any session opened on this desk.
func (d *Desk) OnExpire(fn func(models.Expiry)) {
	d.subMu.Lock()
	d.expireFns = append(d.expireFns, fn)
	d.subMu.Unlock()
}

func (d *Desk) broadcast(snap models.Snapshot) {
	d.subMu.RLock()
	fns := make([]func(models.Snapshot), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.RUnlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (d *Desk) expire(e models.Expiry) {
	d.subMu.RLock()
	fns := slices.Clone(d.expireFns)
	d.subMu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
