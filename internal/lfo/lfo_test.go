package lfo

import (
	"math"
	"testing"
)

func TestLFOSineShape(t *testing.T) {
	l := LFO{Depth: 2, RateHz: 1, Waveform: WaveSine}
	if v := l.Value(0); math.Abs(v) > 1e-9 {
		t.Errorf("sine at phase 0: got %f, want 0", v)
	}
	if v := l.Value(0.25); math.Abs(v-2) > 1e-9 {
		t.Errorf("sine at phase 0.25: got %f, want 2", v)
	}
	if v := l.Value(1.75); math.Abs(v+2) > 1e-9 {
		t.Errorf("sine at phase 0.75 of the second cycle: got %f, want -2", v)
	}
}

func TestLFOTriangleBasicShape(t *testing.T) {
	l := LFO{Depth: 1, RateHz: 1, Waveform: WaveTriangle}
	cases := []struct{ at, want float64 }{
		{0, 0}, {0.25, 1}, {0.5, 0}, {0.75, -1}, {0.125, 0.5},
	}
	for _, tc := range cases {
		if v := l.Value(tc.at); math.Abs(v-tc.want) > 1e-9 {
			t.Errorf("triangle at %v: got %f, want %f", tc.at, v, tc.want)
		}
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := LFO{Depth: 2, RateHz: 1, Waveform: WaveSquare}
	if v := l.Value(0.1); v != 2 {
		t.Errorf("square first half: got %f, want 2.0", v)
	}
	if v := l.Value(0.6); v != -2 {
		t.Errorf("square second half: got %f, want -2.0", v)
	}
}

func TestLFOSawShape(t *testing.T) {
	l := LFO{Depth: 1, RateHz: 1, Waveform: WaveSaw}
	if v := l.Value(0.25); math.Abs(v-0.5) > 1e-9 {
		t.Errorf("saw at phase 0.25: got %f, want 0.5", v)
	}
	if v := l.Value(0.75); math.Abs(v+0.5) > 1e-9 {
		t.Errorf("saw at phase 0.75: got %f, want -0.5", v)
	}
}

func TestLFOZeroDepthOrRateReturnsZero(t *testing.T) {
	if v := (LFO{Depth: 0, RateHz: 5}).Value(0.3); v != 0 {
		t.Errorf("zero depth should return 0, got %f", v)
	}
	if v := (LFO{Depth: 1, RateHz: 0}).Value(0.3); v != 0 {
		t.Errorf("zero rate should return 0, got %f", v)
	}
}

func TestLFODipStartsAtZero(t *testing.T) {
	l := LFO{Depth: 0.5, RateHz: 2}
	if v := l.Dip(0); v != 0 {
		t.Errorf("dip at 0: got %f", v)
	}
	if v := l.Dip(0.25); math.Abs(v-0.5) > 1e-9 {
		t.Errorf("dip at half period: got %f, want 0.5", v)
	}
}

func TestLFOIsGranularityIndependent(t *testing.T) {
	l := LFO{Depth: 1, RateHz: 3.7, Waveform: WaveTriangle}
	direct := l.Value(1.2345)
	for i := 0; i < 1000; i++ {
		l.Value(float64(i) / 1000)
	}
	if again := l.Value(1.2345); again != direct {
		t.Fatalf("value changed with sampling history: %v vs %v", direct, again)
	}
}

func TestLFOActive(t *testing.T) {
	if (LFO{}).Active() {
		t.Error("default LFO should not be active")
	}
	if !(LFO{Depth: 1, RateHz: 5}).Active() {
		t.Error("configured LFO should be active")
	}
}
