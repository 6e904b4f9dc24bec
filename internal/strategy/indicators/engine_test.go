package indicators

import (
	"errors"
	"math"
	"testing"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/ports"
)

func smallConfig() Config {
	return Config{
		RSI:        RSIConfig{IndicatorConfig{Period: 4}},
		LegacyRSI:  LegacyRSIConfig{IndicatorConfig{Period: 3}},
		ATR:        ATRConfig{IndicatorConfig{Period: 4}},
		VI1:        BandConfig{Name: "VI1", Multiplier: 1, SeedLevel: 95, SeedPhase: domain.PhaseBullish},
		VI2:        BandConfig{Name: "VI2", Multiplier: 2, SeedLevel: 90, SeedPhase: domain.PhaseBullish},
		VI3:        BandConfig{Name: "VI3", Multiplier: 3, SeedLevel: 85, SeedPhase: domain.PhaseBullish},
		HistoryCap: 5,
	}
}

func series(closes ...float64) []domain.Candle {
	out := make([]domain.Candle, 0, len(closes))
	for i, c := range closes {
		out = append(out, bar(i, c+1, c-1, c))
	}
	return out
}

func TestState_ViewRequiresTwoBars(t *testing.T) {
	s := NewState(smallConfig())
	if _, err := s.View(); !errors.Is(err, ports.ErrInsufficientHistory) {
		t.Fatalf("empty state: got %v, want ErrInsufficientHistory", err)
	}
	s.Update(bar(0, 101, 99, 100))
	if _, err := s.View(); !errors.Is(err, ports.ErrInsufficientHistory) {
		t.Fatalf("one bar: got %v, want ErrInsufficientHistory", err)
	}
	s.Update(bar(1, 102, 100, 101))
	if _, err := s.View(); err != nil {
		t.Fatalf("two bars: unexpected error %v", err)
	}
}

func TestState_RequiredBars(t *testing.T) {
	s := NewState(Config{
		RSI: RSIConfig{IndicatorConfig{Period: 40}},
		ATR: ATRConfig{IndicatorConfig{Period: 28}},
	})
	if got := s.RequiredBars(); got != 41 {
		t.Errorf("RequiredBars: got %d, want 41", got)
	}
}

func TestState_ViewCarriesWindows(t *testing.T) {
	s := NewState(smallConfig())
	s.UpdateBatch(series(100, 102, 104, 106, 108, 110))
	v, err := s.View()
	if err != nil {
		t.Fatal(err)
	}
	if v.Close != 110 || v.PrevClose != 108 {
		t.Errorf("closes: got %v/%v, want 110/108", v.Close, v.PrevClose)
	}
	if !v.RSIReady || !v.ATRReady {
		t.Fatalf("readiness: rsi=%v atr=%v, want both ready after 6 bars", v.RSIReady, v.ATRReady)
	}
	if v.PrevRSI == 0 {
		t.Error("PrevRSI must carry the prior bar's value once the RSI is ready")
	}
	if v.BarTime != bar(5, 0, 0, 0).OpenTime {
		t.Errorf("BarTime: got %v", v.BarTime)
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := NewState(smallConfig())
	s.UpdateBatch(series(100, 102, 104, 106, 108, 110))
	before, err := s.View()
	if err != nil {
		t.Fatal(err)
	}

	c := s.Clone()
	c.UpdateBatch(series(100, 102, 104, 106, 108, 110, 90, 80)[6:])

	after, err := s.View()
	if err != nil {
		t.Fatal(err)
	}
	if after.RSI != before.RSI || after.Close != before.Close {
		t.Fatal("advancing a clone mutated the original")
	}
	if s.Bars() == c.Bars() {
		t.Fatal("clone bar count should have advanced independently")
	}
	if len(s.RSIHistory()) == len(c.RSIHistory()) {
		t.Fatal("clone histories should have advanced independently")
	}

	cv, err := c.View()
	if err != nil {
		t.Fatal(err)
	}
	if cv.RSI >= before.RSI {
		t.Errorf("clone RSI after losses: got %.4f, want below %.4f", cv.RSI, before.RSI)
	}
}

func TestState_HistoryBounded(t *testing.T) {
	s := NewState(smallConfig())
	closes := make([]float64, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		price += math.Sin(float64(i))
		closes = append(closes, price)
	}
	s.UpdateBatch(series(closes...))
	if got := len(s.RSIHistory()); got != 5 {
		t.Errorf("history length: got %d, want cap 5", got)
	}
}

func TestState_BandsWaitForATR(t *testing.T) {
	s := NewState(smallConfig())
	// Four bars: ATR (period 4) needs five, so the bands must still hold
	// their seeds even though price ran far below every level.
	s.UpdateBatch(series(50, 48, 46, 44))
	v, err := s.View()
	if err != nil {
		t.Fatal(err)
	}
	if v.ATRReady {
		t.Fatal("ATR should not be ready after 4 bars with period 4")
	}
	if v.VI1.Phase != domain.PhaseBullish || v.VI1.Level != 95 {
		t.Errorf("VI1 moved before ATR was ready: %+v", v.VI1)
	}
}
