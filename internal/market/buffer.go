// Package market holds the bounded candle history feeding the indicator
// pipeline.
package market

import (
	"fmt"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// DefaultCapacity is 20 days of 15-minute bars.
const DefaultCapacity = 1920

// AddResult reports what Add did with a bar.
type AddResult int

const (
	Added AddResult = iota
	Duplicate
)

// Buffer is a fixed-capacity ordered sequence of closed bars, deduplicated
// by open time, oldest evicted first. The per-bar cycle is the single
// writer, so the buffer itself carries no locking.
type Buffer struct {
	capacity int
	candles  []domain.Candle
	seen     map[int64]struct{}
}

// Status is a summary of buffer contents for logs and health reporting.
type Status struct {
	Len      int       `json:"len"`
	Capacity int       `json:"capacity"`
	Oldest   time.Time `json:"oldest,omitempty"`
	Newest   time.Time `json:"newest,omitempty"`
}

// NewBuffer creates a buffer with the given capacity (DefaultCapacity when
// capacity <= 0).
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		candles:  make([]domain.Candle, 0, capacity),
		seen:     make(map[int64]struct{}, capacity),
	}
}

// Add inserts one bar. A bar whose open time is already present is a no-op
// returning Duplicate. Inserting behind the newest bar means the caller
// failed to sort and is reported as ErrCapacityViolation. Evicts the oldest
// bar silently when over capacity.
func (b *Buffer) Add(c domain.Candle) (AddResult, error) {
	ts := c.TimestampMS()
	if _, ok := b.seen[ts]; ok {
		return Duplicate, nil
	}
	if n := len(b.candles); n > 0 && !c.OpenTime.After(b.candles[n-1].OpenTime) {
		return 0, fmt.Errorf("add bar %s behind newest %s: %w",
			c.OpenTime.UTC().Format(time.RFC3339), b.candles[n-1].OpenTime.UTC().Format(time.RFC3339), ports.ErrCapacityViolation)
	}
	b.candles = append(b.candles, c)
	b.seen[ts] = struct{}{}
	if len(b.candles) > b.capacity {
		delete(b.seen, b.candles[0].TimestampMS())
		b.candles = append(b.candles[:0], b.candles[1:]...)
	}
	return Added, nil
}

// AddBatch sorts the given bars by open time and adds each in turn.
// Bars at or behind the newest buffered bar are superseded history (a
// gap-fill fetch overlapping bars already held) and are skipped, not
// errors. Returns the number of newly accepted bars and the number of
// skipped bars (duplicates plus superseded).
func (b *Buffer) AddBatch(candles []domain.Candle) (added, skipped int, err error) {
	sorted := make([]domain.Candle, len(candles))
	copy(sorted, candles)
	domain.SortCandles(sorted)
	for _, c := range sorted {
		if _, ok := b.seen[c.TimestampMS()]; !ok {
			if n := len(b.candles); n > 0 && !c.OpenTime.After(b.candles[n-1].OpenTime) {
				skipped++
				continue
			}
		}
		res, err := b.Add(c)
		if err != nil {
			return added, skipped, err
		}
		switch res {
		case Added:
			added++
		case Duplicate:
			skipped++
		}
	}
	return added, skipped, nil
}

// Len returns the number of buffered bars.
func (b *Buffer) Len() int {
	return len(b.candles)
}

// Last returns the newest bar, if any.
func (b *Buffer) Last() (domain.Candle, bool) {
	if len(b.candles) == 0 {
		return domain.Candle{}, false
	}
	return b.candles[len(b.candles)-1], true
}

// Latest returns a copy of the k most recent bars, oldest first, or nil
// when fewer than k are buffered.
func (b *Buffer) Latest(k int) []domain.Candle {
	if k <= 0 || len(b.candles) < k {
		return nil
	}
	out := make([]domain.Candle, k)
	copy(out, b.candles[len(b.candles)-k:])
	return out
}

// All returns a copy of the full ordered sequence.
func (b *Buffer) All() []domain.Candle {
	out := make([]domain.Candle, len(b.candles))
	copy(out, b.candles)
	return out
}

// Status summarizes the buffer for logging.
func (b *Buffer) Status() Status {
	s := Status{Len: len(b.candles), Capacity: b.capacity}
	if len(b.candles) > 0 {
		s.Oldest = b.candles[0].OpenTime
		s.Newest = b.candles[len(b.candles)-1].OpenTime
	}
	return s
}
