// Package bootstrap loads the operator-supplied seed document that lets
// the bot start mid-stream: band levels and phases carried over from the
// previous deployment, plus the candle history to replay before going
// live.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// BandSeed is the carried-over state of one volatility band.
type BandSeed struct {
	Level float64      `json:"level"`
	Phase domain.Phase `json:"phase"`
	Time  time.Time    `json:"time"`
}

// Seed is the operator-supplied bootstrap document.
type Seed struct {
	Symbol string `json:"symbol"`

	// RequiredLiveBars is how many live bars must accumulate on top of
	// the seeded history before decisions are allowed.
	RequiredLiveBars int `json:"required_live_bars"`

	VI1 BandSeed `json:"vi1"`
	VI2 BandSeed `json:"vi2"`
	VI3 BandSeed `json:"vi3"`

	// Candles is the closed-bar history to replay, oldest first.
	Candles []domain.Candle `json:"candles"`
}

// Load reads and validates a seed file. A missing path returns nil seed
// and no error: starting without a seed is allowed, decisions then wait
// for the full warm-up on live data alone.
func Load(ctx context.Context, path string, logger ports.Logger) (*Seed, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warn(ctx, "No seed file found, warming up from live data only", map[string]interface{}{"path": path})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}

	logger.Info(ctx, "Seed loaded", map[string]interface{}{
		"path":               path,
		"candles":            len(seed.Candles),
		"required_live_bars": seed.RequiredLiveBars,
		"vi1_phase":          seed.VI1.Phase,
	})
	return &seed, nil
}

func (s *Seed) validate() error {
	for name, band := range map[string]BandSeed{"vi1": s.VI1, "vi2": s.VI2, "vi3": s.VI3} {
		if band.Level <= 0 {
			return fmt.Errorf("%s seed level must be positive, got %v", name, band.Level)
		}
		if band.Phase != domain.PhaseBullish && band.Phase != domain.PhaseBearish {
			return fmt.Errorf("%s seed phase must be BULLISH or BEARISH, got %q", name, band.Phase)
		}
	}
	var prev time.Time
	for i, c := range s.Candles {
		if !c.IsClosed() {
			return fmt.Errorf("candle %d has no volume", i)
		}
		if i > 0 && !c.OpenTime.After(prev) {
			return fmt.Errorf("candle %d out of order: %v after %v", i, c.OpenTime, prev)
		}
		prev = c.OpenTime
	}
	return nil
}
