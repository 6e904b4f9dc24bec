package indicators

import (
	"math"
	"testing"
)

const tolerance = 1e-6

// wilderRSIReference is a straightforward full-series implementation used
// to cross-check the incremental form bar for bar.
func wilderRSIReference(closes []float64, period int) []float64 {
	if len(closes) < period+1 {
		return nil
	}
	var out []float64
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func TestRSI_MatchesReferenceBarForBar(t *testing.T) {
	closes := []float64{
		100, 102, 101, 105, 107, 110, 108, 109, 111, 115,
		117, 120, 119, 121, 123, 125, 122, 118, 116, 119,
		121, 124, 126, 123, 120, 117, 119, 122, 125, 128,
	}
	for _, period := range []int{3, 12, 14} {
		want := wilderRSIReference(closes, period)
		r := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: period}})

		got := make([]float64, 0, len(want))
		for _, c := range closes {
			r.Update(c)
			if r.Ready() {
				got = append(got, r.Value())
			}
		}
		if len(got) != len(want) {
			t.Fatalf("period %d: got %d values, want %d", period, len(got), len(want))
		}
		for i := range want {
			if math.Abs(got[i]-want[i]) > tolerance {
				t.Errorf("period %d bar %d: got %.8f, want %.8f", period, i, got[i], want[i])
			}
		}
	}
}

func TestRSI_UndefinedBeforePeriodPlusOne(t *testing.T) {
	r := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: 5}})
	closes := []float64{100, 101, 102, 103, 104}
	for _, c := range closes {
		r.Update(c)
		if r.Ready() {
			t.Fatalf("RSI must not be ready after %d closes (period 5)", 5)
		}
	}
	r.Update(105)
	if !r.Ready() {
		t.Fatal("RSI must be ready after period+1 closes")
	}
}

func TestRSI_AllGainsSaturatesAt100(t *testing.T) {
	r := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: 3}})
	for _, c := range []float64{100, 102, 104, 106, 108} {
		r.Update(c)
	}
	if !r.Ready() {
		t.Fatal("expected ready")
	}
	if math.Abs(r.Value()-100) > tolerance {
		t.Errorf("all-gains RSI: got %.8f, want 100", r.Value())
	}
}

func TestRSI_AllLossesAtZero(t *testing.T) {
	r := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: 3}})
	for _, c := range []float64{108, 106, 104, 102, 100} {
		r.Update(c)
	}
	if math.Abs(r.Value()-0) > tolerance {
		t.Errorf("all-losses RSI: got %.8f, want 0", r.Value())
	}
}

func TestRSI_DefaultPeriod(t *testing.T) {
	r := NewRSI(RSIConfig{})
	if r.Period() != DefaultRSIPeriod {
		t.Errorf("default period: got %d, want %d", r.Period(), DefaultRSIPeriod)
	}
}

func TestLegacyRSI_DiffersFromWilderAfterWindow(t *testing.T) {
	// Both formulations agree on the seed window and then diverge: the
	// legacy SMA form forgets old deltas, Wilder never fully does.
	closes := []float64{
		100, 102, 101, 105, 107, 110, 108, 109, 111, 115,
		117, 120, 119, 121, 123, 125, 122, 118, 116, 119,
	}
	period := 5
	wilder := NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: period}})
	legacy := NewLegacyRSI(LegacyRSIConfig{IndicatorConfig: IndicatorConfig{Period: period}})
	for _, c := range closes {
		wilder.Update(c)
		legacy.Update(c)
	}
	if !legacy.Ready() {
		t.Fatal("legacy RSI should be ready")
	}
	if math.Abs(wilder.Value()-legacy.Value()) < 1e-9 {
		t.Error("expected the SMA formulation to diverge from Wilder on this series")
	}
	if legacy.Value() <= 0 || legacy.Value() >= 100 {
		t.Errorf("legacy RSI out of range: %.4f", legacy.Value())
	}
}
