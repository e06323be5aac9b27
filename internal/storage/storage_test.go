package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rewired-gh/quickodds/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_SetAndGetPrice(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, ok, err := s.GetPrice(ctx, "bitcoin"); err != nil || ok {
		t.Fatalf("GetPrice on empty cache: ok=%v err=%v", ok, err)
	}
	if err := s.SetPrice(ctx, "bitcoin", 64000.5); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	p, ok, err := s.GetPrice(ctx, "bitcoin")
	if err != nil || !ok {
		t.Fatalf("GetPrice: ok=%v err=%v", ok, err)
	}
	if p != 64000.5 {
		t.Errorf("got %v, want 64000.5", p)
	}
}

func TestStorage_LastWriteWins(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	for _, p := range []float64{1, 2, 3} {
		if err := s.SetPrice(ctx, "solana", p); err != nil {
			t.Fatalf("SetPrice: %v", err)
		}
	}
	p, _, _ := s.GetPrice(ctx, "solana")
	if p != 3 {
		t.Errorf("got %v, want 3", p)
	}
}

func TestStorage_RejectsInvalidPrice(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SetPrice(context.Background(), "bitcoin", 0); !errors.Is(err, models.ErrInvalidSample) {
		t.Errorf("expected ErrInvalidSample, got %v", err)
	}
}

func TestStorage_LastPrices(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_ = s.SetPrice(ctx, "bitcoin", 64000)
	_ = s.SetPrice(ctx, "ethereum", 3100)

	got, err := s.LastPrices(ctx, []string{"bitcoin", "ethereum", "solana"})
	if err != nil {
		t.Fatalf("LastPrices: %v", err)
	}
	if len(got) != 2 || got["bitcoin"] != 64000 || got["ethereum"] != 3100 {
		t.Errorf("unexpected prices: %v", got)
	}
}

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetPrice(ctx, "the-open-network", 5.4321); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	_ = s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	p, ok, err := s2.GetPrice(ctx, "the-open-network")
	if err != nil || !ok || p != 5.4321 {
		t.Errorf("after reopen: p=%v ok=%v err=%v", p, ok, err)
	}
}

func TestStorage_ConcurrentWriters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 1; j <= 20; j++ {
				if err := s.SetPrice(ctx, fmt.Sprintf("asset-%d", i), float64(j)); err != nil {
					t.Errorf("SetPrice: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < 8; i++ {
		p, ok, _ := s.GetPrice(ctx, fmt.Sprintf("asset-%d", i))
		if !ok || p != 20 {
			t.Errorf("asset-%d: got %v ok=%v", i, p, ok)
		}
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, ok, _ := m.GetPrice(ctx, "bitcoin"); ok {
		t.Fatal("expected empty cache")
	}
	if err := m.SetPrice(ctx, "bitcoin", 2); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}
	if err := m.SetPrice(ctx, "bitcoin", -1); !errors.Is(err, models.ErrInvalidSample) {
		t.Errorf("expected ErrInvalidSample, got %v", err)
	}
	p, ok, _ := m.GetPrice(ctx, "bitcoin")
	if !ok || p != 2 {
		t.Errorf("got %v ok=%v", p, ok)
	}
	got, _ := m.LastPrices(ctx, []string{"bitcoin", "ethereum"})
	if len(got) != 1 || got["bitcoin"] != 2 {
		t.Errorf("unexpected prices: %v", got)
	}
}
