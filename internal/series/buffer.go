// Package series holds the bounded price history of one market session.
package series

import (
	"fmt"
	"time"

	"github.com/rewired-gh/quickodds/internal/models"
)

// DefaultCap is the number of samples a buffer keeps.
const DefaultCap = 90

type kind uint8

const (
	placeholder kind = iota
	observed
)

type entry struct {
	at    time.Time
	price float64
	kind  kind
}

// Buffer is an ordered FIFO of price samples capped at a fixed length.
// It is either empty, all placeholders, or all real samples.
// Buffer is not safe for concurrent use; the owning session serializes access.
type Buffer struct {
	capacity int
	entries  []entry
}

// New creates an empty buffer. A non-positive capacity falls back to DefaultCap.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Buffer{capacity: capacity, entries: make([]entry, 0, capacity)}
}

// Len returns the current length.
func (b *Buffer) Len() int { return len(b.entries) }

// Placeholder reports whether the buffer holds only placeholder samples.
func (b *Buffer) Placeholder() bool {
	return len(b.entries) > 0 && b.entries[0].kind == placeholder
}

// SeedPlaceholder fills an empty buffer with count zero-price samples spaced
// evenly and ending at now. It reports whether anything was written.
func (b *Buffer) SeedPlaceholder(count int, spacing time.Duration, now time.Time) bool {
	return b.seed(count, spacing, now, 0, placeholder)
}

// SeedPrice is SeedPlaceholder with a known real price, used to render a
// cached value before the first fetch returns.
func (b *Buffer) SeedPrice(count int, spacing time.Duration, now time.Time, price float64) (bool, error) {
	if err := models.ValidatePrice(price); err != nil {
		return false, err
	}
	return b.seed(count, spacing, now, price, observed), nil
}

func (b *Buffer) seed(count int, spacing time.Duration, now time.Time, price float64, k kind) bool {
	if len(b.entries) > 0 || count <= 0 {
		return false
	}
	if count > b.capacity {
		count = b.capacity
	}
	for i := count - 1; i >= 0; i-- {
		b.entries = append(b.entries, entry{
			at:    now.Add(-time.Duration(i) * spacing),
			price: price,
			kind:  k,
		})
	}
	return true
}

// Append adds a real sample at the tail. A placeholder buffer is replaced by
// the sample; otherwise the oldest samples are evicted to stay within cap.
// Invalid prices and samples older than the tail are rejected.
func (b *Buffer) Append(s models.PriceSample) error {
	if err := models.ValidatePrice(s.Price); err != nil {
		return err
	}
	if b.Placeholder() {
		b.entries = append(b.entries[:0], entry{at: s.At, price: s.Price, kind: observed})
		return nil
	}
	if n := len(b.entries); n > 0 && s.At.Before(b.entries[n-1].at) {
		return fmt.Errorf("%w: %s before tail %s", models.ErrOutOfOrder,
			s.At.Format(time.RFC3339Nano), b.entries[n-1].at.Format(time.RFC3339Nano))
	}
	b.entries = append(b.entries, entry{at: s.At, price: s.Price, kind: observed})
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append(b.entries[:0], b.entries[over:]...)
	}
	return nil
}

// Samples returns a copy of the series, oldest first. Placeholders report price 0.
func (b *Buffer) Samples() []models.PriceSample {
	out := make([]models.PriceSample, len(b.entries))
	for i, e := range b.entries {
		out[i] = models.PriceSample{At: e.at, Price: e.price}
	}
	return out
}

// Last returns the newest real sample.
func (b *Buffer) Last() (models.PriceSample, bool) {
	if len(b.entries) == 0 || b.Placeholder() {
		return models.PriceSample{}, false
	}
	e := b.entries[len(b.entries)-1]
	return models.PriceSample{At: e.at, Price: e.price}, true
}

// Reset drops all samples.
func (b *Buffer) Reset() {
	b.entries = b.entries[:0]
}

// Chart returns a padded vertical range for drawing the series. Small moves
// stay visible because padding follows the observed range rather than the
// absolute price.
func (b *Buffer) Chart() models.ChartRange {
	if len(b.entries) == 0 {
		return models.ChartRange{Min: 0, Max: 1}
	}
	lo, hi := b.entries[0].price, b.entries[0].price
	for _, e := range b.entries[1:] {
		if e.price < lo {
			lo = e.price
		}
		if e.price > hi {
			hi = e.price
		}
	}
	pad := (hi - lo) * 0.25
	if pad == 0 {
		pad = hi * 0.0002
	}
	if pad == 0 {
		pad = 1
	}
	return models.ChartRange{Min: lo - pad, Max: hi + pad}
}
