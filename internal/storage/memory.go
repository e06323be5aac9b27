package storage

import (
	"context"
	"sync"

	"github.com/rewired-gh/quickodds/internal/models"
)

// Memory is a process-local price cache.
type Memory struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{prices: make(map[string]float64)}
}

func (m *Memory) GetPrice(_ context.Context, assetID string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prices[PriceKey(assetID)]
	return p, ok, nil
}

func (m *Memory) SetPrice(_ context.Context, assetID string, price float64) error {
	if err := models.ValidatePrice(price); err != nil {
		return err
	}
	m.mu.Lock()
	m.prices[PriceKey(assetID)] = price
	m.mu.Unlock()
	return nil
}

func (m *Memory) LastPrices(_ context.Context, assetIDs []string) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(assetIDs))
	for _, id := range assetIDs {
		if p, ok := m.prices[PriceKey(id)]; ok {
			out[id] = p
		}
	}
	return out, nil
}
