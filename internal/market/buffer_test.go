package market

import (
	"errors"
	"testing"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

func barAt(base time.Time, i int) domain.Candle {
	return domain.Candle{
		OpenTime: base.Add(time.Duration(i) * 15 * time.Minute),
		Open:     100 + float64(i),
		High:     101 + float64(i),
		Low:      99 + float64(i),
		Close:    100.5 + float64(i),
		Volume:   10,
	}
}

func TestBuffer_CapacityAndEviction(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	capacity := 5
	b := NewBuffer(capacity)

	for i := 0; i < capacity+3; i++ {
		res, err := b.Add(barAt(base, i))
		if err != nil {
			t.Fatalf("Add(%d): unexpected error: %v", i, err)
		}
		if res != Added {
			t.Fatalf("Add(%d): expected Added, got %v", i, res)
		}
		if b.Len() > capacity {
			t.Fatalf("Add(%d): length %d exceeds capacity %d", i, b.Len(), capacity)
		}
	}

	all := b.All()
	if len(all) != capacity {
		t.Fatalf("expected %d bars after overflow, got %d", capacity, len(all))
	}
	// Oldest three evicted: first remaining bar is index 3.
	if !all[0].OpenTime.Equal(base.Add(3 * 15 * time.Minute)) {
		t.Errorf("expected oldest bar at index 3, got %v", all[0].OpenTime)
	}
	if !all[len(all)-1].OpenTime.Equal(base.Add(7 * 15 * time.Minute)) {
		t.Errorf("expected newest bar at index 7, got %v", all[len(all)-1].OpenTime)
	}
}

func TestBuffer_DuplicateIsNoOp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuffer(10)

	if _, err := b.Add(barAt(base, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Add(barAt(base, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := barAt(base, 1)
	dup.Close = 999 // same timestamp, different payload: still a no-op
	res, err := b.Add(dup)
	if err != nil {
		t.Fatalf("unexpected error on duplicate: %v", err)
	}
	if res != Duplicate {
		t.Errorf("expected Duplicate, got %v", res)
	}
	if b.Len() != 2 {
		t.Errorf("expected length 2 after duplicate add, got %d", b.Len())
	}
	last, _ := b.Last()
	if last.Close == 999 {
		t.Error("duplicate add must not replace the stored bar")
	}
}

func TestBuffer_OutOfOrderAdd(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuffer(10)

	if _, err := b.Add(barAt(base, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := b.Add(barAt(base, 2))
	if err == nil {
		t.Fatal("expected error for out-of-order add")
	}
	if !errors.Is(err, ports.ErrCapacityViolation) {
		t.Errorf("expected ErrCapacityViolation, got %v", err)
	}
}

func TestBuffer_AddBatchSortsFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuffer(10)

	batch := []domain.Candle{barAt(base, 3), barAt(base, 1), barAt(base, 2), barAt(base, 1)}
	added, dups, err := b.AddBatch(batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 added, got %d", added)
	}
	if dups != 1 {
		t.Errorf("expected 1 duplicate, got %d", dups)
	}

	all := b.All()
	for i := 1; i < len(all); i++ {
		if !all[i].OpenTime.After(all[i-1].OpenTime) {
			t.Fatalf("bars not strictly increasing at %d", i)
		}
	}
}

// A gap-fill fetch can overlap history the buffer already holds, including
// bars older than the newest one. Those are superseded, not fatal: the
// batch must skip them and still accept the genuinely new bars.
func TestBuffer_AddBatchSkipsSupersededBars(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuffer(10)

	for i := 3; i <= 5; i++ {
		if _, err := b.Add(barAt(base, i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// One stale bar behind the newest, one duplicate, two fresh bars.
	batch := []domain.Candle{barAt(base, 2), barAt(base, 5), barAt(base, 6), barAt(base, 7)}
	added, skipped, err := b.AddBatch(batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 2 {
		t.Errorf("expected 2 added, got %d", added)
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", skipped)
	}

	if b.Len() != 5 {
		t.Fatalf("expected 5 buffered bars, got %d", b.Len())
	}
	all := b.All()
	if !all[0].OpenTime.Equal(base.Add(3 * 15 * time.Minute)) {
		t.Errorf("stale bar must not enter the buffer, oldest is %v", all[0].OpenTime)
	}
	last, _ := b.Last()
	if !last.OpenTime.Equal(base.Add(7 * 15 * time.Minute)) {
		t.Errorf("unexpected newest bar: %v", last.OpenTime)
	}
}

func TestBuffer_Latest(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuffer(10)
	for i := 0; i < 4; i++ {
		if _, err := b.Add(barAt(base, i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := b.Latest(5); got != nil {
		t.Errorf("expected nil when fewer than k bars, got %d", len(got))
	}
	got := b.Latest(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if !got[0].OpenTime.Equal(base.Add(2 * 15 * time.Minute)) {
		t.Errorf("unexpected first bar of Latest(2): %v", got[0].OpenTime)
	}

	// Returned slice is a copy; mutating it must not touch the buffer.
	got[0].Close = -1
	again := b.Latest(2)
	if again[0].Close == -1 {
		t.Error("Latest must return a copy")
	}
}

func TestBuffer_Status(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuffer(8)

	s := b.Status()
	if s.Len != 0 || s.Capacity != 8 {
		t.Errorf("unexpected empty status: %+v", s)
	}

	for i := 0; i < 3; i++ {
		if _, err := b.Add(barAt(base, i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	s = b.Status()
	if s.Len != 3 {
		t.Errorf("expected len 3, got %d", s.Len)
	}
	if !s.Oldest.Equal(base) {
		t.Errorf("unexpected oldest: %v", s.Oldest)
	}
	if !s.Newest.Equal(base.Add(2 * 15 * time.Minute)) {
		t.Errorf("unexpected newest: %v", s.Newest)
	}
}
