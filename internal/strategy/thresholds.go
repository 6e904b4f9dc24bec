package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// bucketBounds are the upper bounds of the entry-RSI buckets. An entry RSI
// at a shared endpoint resolves to the lower band (first match wins); an
// entry below the first band clamps into it.
var bucketBounds = [5]float64{50, 55, 60, 65, 70}

// ThresholdTable maps position kind to the per-bucket RSI-move thresholds
// that fire a target exit. Index 0 is the 45-50 band, index 5 is >=70.
type ThresholdTable map[domain.PositionKind][6]float64

// DefaultThresholds returns the strategy's exit threshold tables.
// LONG_VI1 is the most conservative, LONG_VI2 the tightest, LONG_REENTRY
// sits in between; SHORT carries its own table.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		domain.KindShort:       {10, 11, 12, 13, 14, 15},
		domain.KindLongVI1:     {12, 11, 10, 9, 8, 7},
		domain.KindLongVI2:     {4, 3.5, 3, 2.5, 2, 1.5},
		domain.KindLongReentry: {8, 7, 6, 5, 4, 3},
	}
}

// bucketIndex resolves an entry RSI to its threshold bucket.
func bucketIndex(entryRSI float64) int {
	for i, bound := range bucketBounds {
		if entryRSI <= bound {
			return i
		}
	}
	return len(bucketBounds)
}

// For returns the target-exit threshold for the given kind and entry RSI.
func (t ThresholdTable) For(kind domain.PositionKind, entryRSI float64) (float64, error) {
	row, ok := t[kind]
	if !ok {
		return 0, fmt.Errorf("no exit thresholds for position kind %q", kind)
	}
	return row[bucketIndex(entryRSI)], nil
}

// ParseThresholdOverride merges a JSON override document into the default
// tables, e.g. {"SHORT":[10,11,12,13,14,15]}. Every overridden kind must
// supply all six buckets.
func ParseThresholdOverride(raw string) (ThresholdTable, error) {
	table := DefaultThresholds()
	if raw == "" {
		return table, nil
	}
	var override map[string][]float64
	if err := json.Unmarshal([]byte(raw), &override); err != nil {
		return nil, fmt.Errorf("parsing exit threshold override: %w", err)
	}
	for key, row := range override {
		kind := domain.PositionKind(key)
		if !kind.Valid() {
			return nil, fmt.Errorf("exit threshold override: unknown position kind %q", key)
		}
		if len(row) != 6 {
			return nil, fmt.Errorf("exit threshold override for %s: need 6 buckets, got %d", key, len(row))
		}
		var fixed [6]float64
		copy(fixed[:], row)
		table[kind] = fixed
	}
	return table, nil
}
