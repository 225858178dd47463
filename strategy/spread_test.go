package strategy

import (
	"math"
	"testing"
)

func defaultSpreadCalc() *SpreadCalculator {
	return NewSpreadCalculator(SpreadConfig{
		BaseSpread:   0.001,
		MinSpread:    0.0002,
		MaxSpread:    0.01,
		LevelSpacing: 0.2,
		SkewFactor:   0.5,
	})
}

func TestSpreadCalculator_FlatLevelWidening(t *testing.T) {
	calc := defaultSpreadCalc()

	// Flat inventory, neutral volatility: level spreads are 0.001, 0.0012, 0.0014.
	expected := []float64{0.001, 0.0012, 0.0014}
	for level, want := range expected {
		bid, ask := calc.Spreads(1.0, 0, level)
		if math.Abs(bid-want) > 1e-12 {
			t.Errorf("level %d bid = %v, want %v", level, bid, want)
		}
		if math.Abs(ask-want) > 1e-12 {
			t.Errorf("level %d ask = %v, want %v", level, ask, want)
		}
	}
}

func TestSpreadCalculator_Monotonicity(t *testing.T) {
	calc := defaultSpreadCalc()

	scenarios := []struct {
		name  string
		vol   float64
		ratio float64
	}{
		{"flat neutral", 1.0, 0},
		{"long high vol", 2.5, 0.6},
		{"short low vol", 0.5, -0.6},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			prevBid, prevAsk := calc.Spreads(sc.vol, sc.ratio, 0)
			for level := 1; level < 5; level++ {
				bid, ask := calc.Spreads(sc.vol, sc.ratio, level)
				if bid < prevBid {
					t.Errorf("bid spread shrank from level %d to %d: %v -> %v", level-1, level, prevBid, bid)
				}
				if ask < prevAsk {
					t.Errorf("ask spread shrank from level %d to %d: %v -> %v", level-1, level, prevAsk, ask)
				}
				prevBid, prevAsk = bid, ask
			}
		})
	}
}

func TestSpreadCalculator_Clamping(t *testing.T) {
	calc := defaultSpreadCalc()

	vols := []float64{0.5, 1.0, 3.0}
	ratios := []float64{-1.5, -1, -0.8, -0.3, 0, 0.3, 0.8, 1, 1.5}

	for _, vol := range vols {
		for _, ratio := range ratios {
			for level := 0; level < 5; level++ {
				bid, ask := calc.Spreads(vol, ratio, level)
				if bid < 0.0002 || bid > 0.01 {
					t.Errorf("bid %v out of [0.0002, 0.01] (vol=%v ratio=%v level=%d)", bid, vol, ratio, level)
				}
				if ask < 0.0002 || ask > 0.01 {
					t.Errorf("ask %v out of [0.0002, 0.01] (vol=%v ratio=%v level=%d)", ask, vol, ratio, level)
				}
			}
		}
	}
}

func TestSpreadCalculator_MirrorSymmetry(t *testing.T) {
	calc := defaultSpreadCalc()

	for _, r := range []float64{0.1, 0.4, 0.8, 1.0} {
		for level := 0; level < 3; level++ {
			longBid, longAsk := calc.Spreads(1.0, r, level)
			shortBid, shortAsk := calc.Spreads(1.0, -r, level)
			if math.Abs(longBid-shortAsk) > 1e-12 || math.Abs(longAsk-shortBid) > 1e-12 {
				t.Errorf("ratio ±%v level %d not mirrored: long=(%v,%v) short=(%v,%v)",
					r, level, longBid, longAsk, shortBid, shortAsk)
			}
		}
	}
}

func TestSpreadCalculator_LongSkewDirection(t *testing.T) {
	calc := defaultSpreadCalc()

	// Net long: wider bid, tighter ask at every level.
	for level := 0; level < 5; level++ {
		bid, ask := calc.Spreads(1.0, 0.5, level)
		if bid <= ask {
			t.Errorf("level %d: expected bid > ask when long, got bid=%v ask=%v", level, bid, ask)
		}
	}
}

func TestSpreadCalculator_QuadraticAmplification(t *testing.T) {
	calc := NewSpreadCalculator(SpreadConfig{
		BaseSpread:   0.001,
		MinSpread:    0.0001,
		MaxSpread:    1, // keep clamping out of the way
		LevelSpacing: 0.2,
		SkewFactor:   0.5,
	})

	// ratio 0.8: skew = 0.4, amp = 1.64, bid = 0.001 + 0.656 = 0.657.
	bid, ask := calc.Spreads(1.0, 0.8, 0)
	if math.Abs(bid-0.657) > 1e-12 {
		t.Errorf("bid = %v, want 0.657", bid)
	}
	// ask = 0.001 - 0.2*1.64 = -0.327, clamped to min.
	if ask != 0.0001 {
		t.Errorf("ask = %v, want clamped 0.0001", ask)
	}
}

func TestRiskScore(t *testing.T) {
	if got := RiskScore(0.8); math.Abs(got-0.64) > 1e-12 {
		t.Errorf("RiskScore(0.8) = %v, want 0.64", got)
	}
	if got := RiskScore(-0.8); math.Abs(got-0.64) > 1e-12 {
		t.Errorf("RiskScore(-0.8) = %v, want 0.64", got)
	}
}
