package session

import (
	"context"
	"errors"
	"time"

	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
)

// fetchOnce asks the source for one spot price and rejects unusable values.
func fetchOnce(ctx context.Context, src PriceSource, assetID string) (float64, error) {
	if assetID == "" {
		return 0, models.ErrUnknownAsset
	}
	price, err := src.FetchSpotPrice(ctx, assetID)
	if err != nil {
		return 0, err
	}
	if err := models.ValidatePrice(price); err != nil {
		return 0, err
	}
	return price, nil
}

// pollLoop fetches immediately, then on every tick. Each fetch runs in its
// own goroutine so a slow source never delays the schedule.
func (s *Session) pollLoop(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	s.launchFetch(ctx, gen)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.launchFetch(ctx, gen)
		}
	}
}

func (s *Session) launchFetch(ctx context.Context, gen uint64) {
	issuedAt := s.now()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleFetch(ctx, gen, issuedAt)
	}()
}

// handleFetch runs one fetch stamped with issuedAt. The failure streak only
// ends when the sample is committed.
func (s *Session) handleFetch(ctx context.Context, gen uint64, issuedAt time.Time) {
	price, err := fetchOnce(ctx, s.source, s.market.Asset.ID)
	if err != nil {
		s.recordFailure(ctx, gen, err)
		return
	}
	if s.commit(ctx, gen, models.PriceSample{At: issuedAt, Price: price}) {
		s.recordSuccess(gen)
	}
}

func (s *Session) recordFailure(ctx context.Context, gen uint64, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.failures++
	n := s.failures
	s.mu.Unlock()

	if n == 1 {
		logger.Warn("Price fetch failed for %s: %v", s.market.Asset.ID, err)
		return
	}
	logger.Debug("Price fetch failed for %s (%d consecutive): %v", s.market.Asset.ID, n, err)
}

func (s *Session) recordSuccess(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	n := s.failures
	s.failures = 0
	s.mu.Unlock()

	if n > 0 {
		logger.Info("Price feed for %s recovered after %d failures", s.market.Asset.ID, n)
	}
}
