// Package session runs one live quick-market view: it polls the spot price,
// keeps the rolling series, recomputes odds and drives the expiry countdown.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/quickodds/internal/countdown"
	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/odds"
	"github.com/rewired-gh/quickodds/internal/series"
)

// PriceSource fetches the current spot price of an asset.
type PriceSource interface {
	FetchSpotPrice(ctx context.Context, assetID string) (float64, error)
}

// PriceCache holds the last known price per asset across sessions.
type PriceCache interface {
	GetPrice(ctx context.Context, assetID string) (float64, bool, error)
	SetPrice(ctx context.Context, assetID string, price float64) error
}

// Config holds the timing and sizing of a session.
type Config struct {
	SeriesCap         int
	SeedPoints        int
	SeedSpacing       time.Duration
	PollInterval      time.Duration
	CountdownInterval time.Duration
	MarketDuration    time.Duration
	Odds              odds.Config
}

// DefaultConfig returns the production cadence: 10s polling, 1s countdown,
// 90-point series seeded with 21 points spaced 10s apart.
func DefaultConfig() Config {
	return Config{
		SeriesCap:         series.DefaultCap,
		SeedPoints:        21,
		SeedSpacing:       10 * time.Second,
		PollInterval:      10 * time.Second,
		CountdownInterval: time.Second,
		MarketDuration:    models.DefaultMarketDuration,
		Odds:              odds.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SeriesCap <= 0 {
		c.SeriesCap = d.SeriesCap
	}
	if c.SeedPoints < 0 {
		c.SeedPoints = 0
	}
	if c.SeedSpacing <= 0 {
		c.SeedSpacing = d.SeedSpacing
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CountdownInterval <= 0 {
		c.CountdownInterval = d.CountdownInterval
	}
	if c.MarketDuration <= 0 {
		c.MarketDuration = d.MarketDuration
	}
	return c
}

// cacheWriteTimeout bounds a cache write issued after a sample is committed.
const cacheWriteTimeout = 5 * time.Second

// Session owns the live state of one quick market. All mutations go through
// mu; results from a previous activation are dropped by comparing gen.
//
// Subscribers and expiry hooks run on session goroutines and must not call
// Deactivate synchronously.
type Session struct {
	id     string
	market models.QuickMarket
	source PriceSource
	cache  PriceCache
	cfg    Config
	calc   *odds.Calculator
	clock  *countdown.Countdown
	now    func() time.Time

	mu        sync.Mutex
	gen       uint64
	active    bool
	cancel    context.CancelFunc
	buf       *series.Buffer
	state     models.MarketState
	view      models.OddsView
	ticks     int
	expired   bool
	failures  int
	updatedAt time.Time

	// notifyMu keeps deliveries in commit order.
	notifyMu  sync.Mutex
	subMu     sync.Mutex
	subs      map[int]func(models.Snapshot)
	nextSub   int
	expireFns []func(models.Expiry)

	wg sync.WaitGroup
}

// New creates an inactive session for market. cache may be nil.
func New(market models.QuickMarket, source PriceSource, cache PriceCache, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:     uuid.New().String(),
		market: market,
		source: source,
		cache:  cache,
		cfg:    cfg,
		calc:   odds.New(cfg.Odds),
		clock:  countdown.New(market.ClosesAt),
		now:    time.Now,
		buf:    series.New(cfg.SeriesCap),
		view:   models.DefaultOdds(),
		subs:   make(map[int]func(models.Snapshot)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Market returns the market this session tracks.
func (s *Session) Market() models.QuickMarket { return s.market }

// Active reports whether the session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Activate seeds the series and starts the poll and countdown loops.
// Both loops stop when ctx is cancelled or Deactivate is called.
func (s *Session) Activate(ctx context.Context) error {
	assetID := s.market.Asset.ID

	cached, hasCached := 0.0, false
	if s.cache != nil && assetID != "" {
		p, ok, err := s.cache.GetPrice(ctx, assetID)
		if err != nil {
			logger.Debug("Price cache read failed for %s: %v", assetID, err)
		} else if ok && models.ValidatePrice(p) == nil {
			cached, hasCached = p, true
		}
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return models.ErrSessionActive
	}
	now := s.now()
	s.buf.Reset()
	s.state = models.MarketState{}
	s.view = models.DefaultOdds()
	s.ticks = 0
	s.failures = 0
	if hasCached {
		// cached prices seed the chart only; the start price waits for a fetch
		_, _ = s.buf.SeedPrice(s.cfg.SeedPoints, s.cfg.SeedSpacing, now, cached)
		s.state.CurrentPrice = cached
	} else {
		s.buf.SeedPlaceholder(s.cfg.SeedPoints, s.cfg.SeedSpacing, now)
	}
	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.active = true
	s.updatedAt = now
	snap := s.snapshotLocked(now)
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.deliver(snap)
	s.notifyMu.Unlock()

	logger.Info("Session %s activated for %s (closes %s)",
		s.id, s.market.ID, s.market.ClosesAt.Format(time.RFC3339))

	s.wg.Add(2)
	go s.pollLoop(runCtx, gen)
	go s.countdownLoop(runCtx, gen)
	return nil
}

// Deactivate stops both loops, cancels in-flight fetches, waits for every
// session goroutine to exit and drops the series and derived state.
func (s *Session) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.buf.Reset()
	s.state = models.MarketState{}
	s.view = models.DefaultOdds()
	s.ticks = 0
	s.mu.Unlock()
	logger.Info("Session %s deactivated", s.id)
}

// Subscribe registers fn for every committed change and returns a function
// that removes it.
func (s *Session) Subscribe(fn func(models.Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// OnExpire registers fn to run once when the countdown first reaches zero.
func (s *Session) OnExpire(fn func(models.Expiry)) {
	s.subMu.Lock()
	s.expireFns = append(s.expireFns, fn)
	s.subMu.Unlock()
}

// Snapshot returns the current derived state.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.now())
}

func (s *Session) snapshotLocked(now time.Time) models.Snapshot {
	return models.Snapshot{
		SessionID:    s.id,
		MarketID:     s.market.ID,
		Title:        s.market.Title,
		AssetID:      s.market.Asset.ID,
		Symbol:       s.market.Asset.Symbol,
		OpenedAt:     s.market.OpenedAt,
		ClosesAt:     s.market.ClosesAt,
		SecondsLeft:  s.clock.Current(now),
		StartPrice:   s.state.StartPrice,
		CurrentPrice: s.state.CurrentPrice,
		Delta:        s.state.Delta(),
		Ready:        s.state.Ready(),
		Odds:         s.view,
		Series:       s.buf.Samples(),
		Chart:        s.buf.Chart(),
		Ticks:        s.ticks,
		UpdatedAt:    s.updatedAt,
	}
}

// commit applies an accepted sample. It returns false if the sample was dropped.
func (s *Session) commit(ctx context.Context, gen uint64, sample models.PriceSample) bool {
	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return false
	}
	if err := s.buf.Append(sample); err != nil {
		s.mu.Unlock()
		logger.Debug("Dropped sample for %s at %s: %v",
			s.market.Asset.ID, sample.At.Format(time.RFC3339Nano), err)
		return false
	}
	if s.state.Observe(sample.Price) {
		logger.Info("Start price for %s set to %v", s.market.ID, sample.Price)
	}
	s.view = s.calc.Compute(s.market.Asset.ID, s.state)
	s.ticks++
	s.updatedAt = s.now()
	snap := s.snapshotLocked(s.updatedAt)
	s.notifyMu.Lock()
	s.mu.Unlock()
	s.deliver(snap)
	s.notifyMu.Unlock()

	if s.cache != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
		defer cancel()
		if err := s.cache.SetPrice(wctx, s.market.Asset.ID, sample.Price); err != nil {
			logger.Warn("Failed to cache price for %s: %v", s.market.Asset.ID, err)
		}
	}
	return true
}

func (s *Session) countdownLoop(ctx context.Context, gen uint64) {
	defer s.wg.Done()
	if s.tickCountdown(gen) {
		return
	}
	ticker := time.NewTicker(s.cfg.CountdownInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.tickCountdown(gen) {
				return
			}
		}
	}
}

// tickCountdown publishes a changed countdown value. It reports true once
// the market has expired and the loop should stop.
func (s *Session) tickCountdown(gen uint64) bool {
	now := s.now()
	_, changed := s.clock.Tick(now)

	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return true
	}
	var expiry *models.Expiry
	if !s.expired && s.clock.Expired(now) {
		s.expired = true
		expiry = &models.Expiry{
			SessionID:  s.id,
			Market:     s.market,
			StartPrice: s.state.StartPrice,
			FinalPrice: s.state.CurrentPrice,
			Delta:      s.state.Delta(),
			Odds:       s.view,
			ClosedAt:   now,
		}
	}
	done := s.expired
	if !changed && expiry == nil {
		s.mu.Unlock()
		return done
	}
	snap := s.snapshotLocked(now)
	s.notifyMu.Lock()
	s.mu.Unlock()
	if changed {
		s.deliver(snap)
	}
	s.notifyMu.Unlock()

	if expiry != nil {
		logger.Info("Market %s expired: start=%v final=%v", s.market.ID, expiry.StartPrice, expiry.FinalPrice)
		s.fireExpiry(*expiry)
	}
	return done
}

func (s *Session) deliver(snap models.Snapshot) {
	s.subMu.Lock()
	fns := make([]func(models.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Session) fireExpiry(e models.Expiry) {
	s.subMu.Lock()
	fns := slices.Clone(s.expireFns)
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
