// Package analytics summarizes closed trades into a performance report:
// win rate, profit factor, drawdowns, and per-strategy breakdowns. It is
// used by the backtest and trade-analysis commands, never by the live loop.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// Report holds the aggregated performance of a set of closed trades.
type Report struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalPNL     float64
	GrossProfit  float64
	GrossLoss    float64 // negative or zero
	ProfitFactor float64 // GrossProfit / -GrossLoss
	AverageWin   float64
	AverageLoss  float64 // negative or zero
	Expectancy   float64 // expected PNL per trade

	FinalBalance       float64
	ReturnOnInvestment float64
	MaxDrawdown        float64 // deepest peak-to-trough fraction
	RecoveryFactor     float64 // TotalPNL over the max drawdown in currency

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageHoldTime      time.Duration

	ByKind       map[domain.PositionKind]KindStats
	ByExitReason map[domain.ExitReason]ReasonStats
	Monthly      map[string]float64 // "2006-01" -> PNL
	Drawdowns    []Drawdown
	EquityCurve  []EquityPoint
}

// KindStats breaks the report down by entry strategy.
type KindStats struct {
	Trades  int
	Wins    int
	PNL     float64
	WinRate float64
}

// ReasonStats breaks the report down by exit reason.
type ReasonStats struct {
	Trades int
	Wins   int
	PNL    float64
}

// Drawdown is one peak-to-recovery episode of the equity curve.
type Drawdown struct {
	StartTime time.Time
	EndTime   time.Time
	Peak      float64
	Trough    float64
	Depth     float64 // fraction of the peak
	Duration  time.Duration
}

// EquityPoint is the balance after each closed trade.
type EquityPoint struct {
	Time     time.Time
	Balance  float64
	Drawdown float64
}

// Analyze builds a Report from closed trades and the starting balance.
// Trades are processed in exit-time order; the input slice is not modified.
func Analyze(trades []*domain.Trade, initialBalance float64) *Report {
	r := &Report{
		FinalBalance: initialBalance,
		ByKind:       make(map[domain.PositionKind]KindStats),
		ByExitReason: make(map[domain.ExitReason]ReasonStats),
		Monthly:      make(map[string]float64),
	}
	if len(trades) == 0 {
		return r
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	balance := initialBalance
	peak := initialBalance
	var open *Drawdown
	var streakWins, streakLosses int
	var totalHold time.Duration

	for _, t := range ordered {
		r.TotalTrades++
		r.TotalPNL += t.PNL
		totalHold += t.ExitTime.Sub(t.EntryTime)

		if t.Win() {
			r.WinningTrades++
			r.GrossProfit += t.PNL
			streakWins++
			streakLosses = 0
		} else {
			r.LosingTrades++
			r.GrossLoss += t.PNL
			streakLosses++
			streakWins = 0
		}
		if streakWins > r.MaxConsecutiveWins {
			r.MaxConsecutiveWins = streakWins
		}
		if streakLosses > r.MaxConsecutiveLosses {
			r.MaxConsecutiveLosses = streakLosses
		}

		ks := r.ByKind[t.Kind]
		ks.Trades++
		ks.PNL += t.PNL
		if t.Win() {
			ks.Wins++
		}
		r.ByKind[t.Kind] = ks

		rs := r.ByExitReason[t.ExitReason]
		rs.Trades++
		rs.PNL += t.PNL
		if t.Win() {
			rs.Wins++
		}
		r.ByExitReason[t.ExitReason] = rs

		r.Monthly[t.ExitTime.Format("2006-01")] += t.PNL

		balance += t.PNL
		r.FinalBalance = balance

		if balance > peak {
			peak = balance
			if open != nil {
				open.EndTime = t.ExitTime
				open.Duration = open.EndTime.Sub(open.StartTime)
				r.Drawdowns = append(r.Drawdowns, *open)
				open = nil
			}
		} else if balance < peak {
			depth := (peak - balance) / peak
			if open == nil {
				open = &Drawdown{StartTime: t.ExitTime, Peak: peak, Trough: balance, Depth: depth}
			} else if balance < open.Trough {
				open.Trough = balance
				open.Depth = math.Max(open.Depth, depth)
			}
			if depth > r.MaxDrawdown {
				r.MaxDrawdown = depth
			}
		}

		r.EquityCurve = append(r.EquityCurve, EquityPoint{
			Time:     t.ExitTime,
			Balance:  balance,
			Drawdown: (peak - balance) / peak,
		})
	}
	if open != nil {
		open.EndTime = ordered[len(ordered)-1].ExitTime
		open.Duration = open.EndTime.Sub(open.StartTime)
		r.Drawdowns = append(r.Drawdowns, *open)
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	if r.WinningTrades > 0 {
		r.AverageWin = r.GrossProfit / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = r.GrossLoss / float64(r.LosingTrades)
	}
	if r.GrossLoss < 0 {
		r.ProfitFactor = r.GrossProfit / -r.GrossLoss
	} else if r.GrossProfit > 0 {
		r.ProfitFactor = math.Inf(1)
	}
	r.Expectancy = r.WinRate*r.AverageWin + (1-r.WinRate)*r.AverageLoss
	if initialBalance > 0 {
		r.ReturnOnInvestment = (r.FinalBalance - initialBalance) / initialBalance
	}
	if r.MaxDrawdown > 0 {
		r.RecoveryFactor = r.TotalPNL / (initialBalance * r.MaxDrawdown)
	}
	r.AverageHoldTime = totalHold / time.Duration(r.TotalTrades)

	for kind, ks := range r.ByKind {
		ks.WinRate = float64(ks.Wins) / float64(ks.Trades)
		r.ByKind[kind] = ks
	}
	return r
}

// MonthlyReturn is one month's realized PNL.
type MonthlyReturn struct {
	Month time.Time
	PNL   float64
}

// MonthlyReturns returns the per-month PNL in chronological order.
func (r *Report) MonthlyReturns() []MonthlyReturn {
	out := make([]MonthlyReturn, 0, len(r.Monthly))
	for key, pnl := range r.Monthly {
		month, err := time.Parse("2006-01", key)
		if err != nil {
			continue
		}
		out = append(out, MonthlyReturn{Month: month, PNL: pnl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
