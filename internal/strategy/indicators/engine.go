package indicators

import (
	"fmt"
	"time"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

// DefaultHistoryCap bounds the rolling RSI/ATR histories kept for
// reporting.
const DefaultHistoryCap = 100

// Config assembles the full engine configuration.
type Config struct {
	RSI        RSIConfig
	LegacyRSI  LegacyRSIConfig
	ATR        ATRConfig
	VI1        BandConfig
	VI2        BandConfig
	VI3        BandConfig
	HistoryCap int
}

// State is the complete incremental indicator state for one instrument.
// It is advanced once per closed bar by the single-writer cycle. Clone
// lets a cycle update a copy and commit only on success, so an aborted
// cycle never leaves a half-updated running average behind.
type State struct {
	rsi    RSI
	legacy LegacyRSI
	atr    ATR
	vi1    VolatilityBand
	vi2    VolatilityBand
	vi3    VolatilityBand

	rsiHist    []float64
	atrHist    []float64
	historyCap int

	bars       int
	lastBar    time.Time
	lastClose  float64
	prevClose  float64
	lastVolume float64
	prevVolume float64
	prevRSI    float64
}

// NewState creates an engine state from config, bands seeded per their
// BandConfig.
func NewState(cfg Config) *State {
	historyCap := cfg.HistoryCap
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &State{
		rsi:        NewRSI(cfg.RSI),
		legacy:     NewLegacyRSI(cfg.LegacyRSI),
		atr:        NewATR(cfg.ATR),
		vi1:        NewVolatilityBand(cfg.VI1),
		vi2:        NewVolatilityBand(cfg.VI2),
		vi3:        NewVolatilityBand(cfg.VI3),
		historyCap: historyCap,
	}
}

// RequiredBars is the minimum closed-bar history before View carries a
// decision-ready RSI.
func (s *State) RequiredBars() int {
	required := s.rsi.Period() + 1
	if a := s.atr.Period() + 1; a > required {
		required = a
	}
	return required
}

// Bars returns how many bars have been processed.
func (s *State) Bars() int {
	return s.bars
}

// LastBarTime returns the open time of the most recently processed bar.
func (s *State) LastBarTime() time.Time {
	return s.lastBar
}

// Update advances every indicator by one closed bar. Bands update only
// once the ATR is ready; their per-bar crossing flags reset here and are
// valid until the next call.
func (s *State) Update(c domain.Candle) {
	s.prevClose = s.lastClose
	s.prevVolume = s.lastVolume
	if s.rsi.Ready() {
		s.prevRSI = s.rsi.Value()
	}

	s.rsi.Update(c.Close)
	s.legacy.Update(c.Close)
	s.atr.Update(c)
	if s.atr.Ready() {
		s.vi1.Update(c.OpenTime, c.Close, s.atr.Value())
		s.vi2.Update(c.OpenTime, c.Close, s.atr.Value())
		s.vi3.Update(c.OpenTime, c.Close, s.atr.Value())
	}

	if s.rsi.Ready() {
		s.rsiHist = appendCapped(s.rsiHist, s.rsi.Value(), s.historyCap)
	}
	if s.atr.Ready() {
		s.atrHist = appendCapped(s.atrHist, s.atr.Value(), s.historyCap)
	}

	s.bars++
	s.lastBar = c.OpenTime
	s.lastClose = c.Close
	s.lastVolume = c.Volume
}

// UpdateBatch advances over a pre-sorted sequence of bars.
func (s *State) UpdateBatch(candles []domain.Candle) {
	for _, c := range candles {
		s.Update(c)
	}
}

// Clone returns an independent deep copy.
func (s *State) Clone() *State {
	out := *s
	out.legacy = s.legacy.clone()
	out.rsiHist = append([]float64(nil), s.rsiHist...)
	out.atrHist = append([]float64(nil), s.atrHist...)
	return &out
}

// RSIHistory returns the rolling decision-RSI history, oldest first.
func (s *State) RSIHistory() []float64 {
	return append([]float64(nil), s.rsiHist...)
}

// View assembles the decision-facing snapshot for the most recent bar.
// Fails with ErrInsufficientHistory until at least two bars were seen
// (the gate windows compare the last two bars).
func (s *State) View() (domain.MarketView, error) {
	if s.bars < 2 {
		return domain.MarketView{}, fmt.Errorf("have %d bars, need 2: %w", s.bars, ports.ErrInsufficientHistory)
	}
	return domain.MarketView{
		BarTime:    s.lastBar,
		Close:      s.lastClose,
		PrevClose:  s.prevClose,
		Volume:     s.lastVolume,
		PrevVolume: s.prevVolume,
		RSI:        s.rsi.Value(),
		RSIReady:   s.rsi.Ready(),
		PrevRSI:    s.prevRSI,
		LegacyRSI:  s.legacy.Value(),
		ATR:        s.atr.Value(),
		ATRReady:   s.atr.Ready(),
		VI1:        s.vi1.View(),
		VI2:        s.vi2.View(),
		VI3:        s.vi3.View(),
	}, nil
}

func appendCapped(hist []float64, v float64, cap int) []float64 {
	hist = append(hist, v)
	if len(hist) > cap {
		hist = hist[len(hist)-cap:]
	}
	return hist
}
