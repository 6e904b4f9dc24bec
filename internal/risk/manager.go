// Package risk sizes orders from available margin and enforces the hard
// position limits.
package risk

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// Config holds sizing configuration.
type Config struct {
	// Leverage multiplies the committed margin into notional exposure.
	Leverage int
	// Utilization is the fraction of available margin committed per
	// position, e.g. 0.95 keeps a 5% buffer for fees and funding.
	Utilization float64
	// MinSize is the exchange's minimum order size in contracts.
	MinSize float64
	// MaxSize caps the computed size; 0 disables the cap.
	MaxSize float64
	// MinAvailableMargin blocks entries entirely while the account is
	// below this balance; 0 disables the floor.
	MinAvailableMargin float64
	// SizeDecimals is the precision the exchange accepts for size.
	SizeDecimals int32
}

// Sizer computes order sizes. Decimal arithmetic keeps the truncation to
// exchange precision exact; float rounding must never produce a size the
// exchange rejects.
type Sizer struct {
	cfg    Config
	logger ports.Logger
}

// NewSizer creates a sizer. Defaults: leverage 10, utilization 0.95,
// min size 0.0001 with 4 decimals.
func NewSizer(cfg Config, logger ports.Logger) (*Sizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for the sizer")
	}
	if cfg.Leverage <= 0 {
		cfg.Leverage = 10
	}
	if cfg.Utilization <= 0 || cfg.Utilization > 1 {
		cfg.Utilization = 0.95
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = 0.0001
	}
	if cfg.SizeDecimals <= 0 {
		cfg.SizeDecimals = 4
	}
	return &Sizer{cfg: cfg, logger: logger}, nil
}

// Size computes the order size in contracts for the given margin balance
// and entry price: margin * leverage * utilization / price, truncated to
// the exchange precision.
func (s *Sizer) Size(ctx context.Context, availableMargin, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive, got %v", ports.ErrInvalidRequest, price)
	}
	if availableMargin <= 0 {
		return 0, fmt.Errorf("%w: no margin available", ports.ErrInsufficientFunds)
	}
	if s.cfg.MinAvailableMargin > 0 && availableMargin < s.cfg.MinAvailableMargin {
		return 0, fmt.Errorf("%w: available margin %.2f below floor %.2f",
			ports.ErrInsufficientFunds, availableMargin, s.cfg.MinAvailableMargin)
	}

	size := decimal.NewFromFloat(availableMargin).
		Mul(decimal.NewFromInt(int64(s.cfg.Leverage))).
		Mul(decimal.NewFromFloat(s.cfg.Utilization)).
		Div(decimal.NewFromFloat(price)).
		Truncate(s.cfg.SizeDecimals)

	minSize := decimal.NewFromFloat(s.cfg.MinSize)
	if size.LessThan(minSize) {
		return 0, fmt.Errorf("%w: computed size %s below exchange minimum %s",
			ports.ErrInsufficientFunds, size, minSize)
	}
	if s.cfg.MaxSize > 0 {
		if maxSize := decimal.NewFromFloat(s.cfg.MaxSize); size.GreaterThan(maxSize) {
			size = maxSize
		}
	}

	result, _ := size.Float64()
	s.logger.Debug(ctx, "Computed order size", map[string]interface{}{
		"available_margin": availableMargin,
		"price":            price,
		"size":             result,
	})
	return result, nil
}
