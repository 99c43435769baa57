package osc

import (
	"math"
	"testing"
)

func TestShapesAtKnownPhases(t *testing.T) {
	cases := []struct {
		kind Kind
		t    float64
		want float64
	}{
		{Sinus, 0.25, 1},
		{Sinus, 0.75, -1},
		{Square, 0.1, 1},
		{Square, 0.6, -1},
		{Triangle, 0, 1},
		{Triangle, 0.5, -1},
		{Triangle, 0.25, 0},
		{Saw, 0, -1},
		{Saw, 0.5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			got := NewShape(tc.kind).Sample(1, 1, tc.t, 0.5, 0)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("%v at t=%v: got %v, want %v", tc.kind, tc.t, got, tc.want)
			}
		})
	}
}

func TestSquareDutyCycle(t *testing.T) {
	s := NewShape(Square)
	if got := s.Sample(1, 1, 0.2, 0.25, 0); got != 1 {
		t.Fatalf("inside duty: got %v", got)
	}
	if got := s.Sample(1, 1, 0.3, 0.25, 0); got != -1 {
		t.Fatalf("outside duty: got %v", got)
	}
}

func TestNoiseShapesStayInRange(t *testing.T) {
	for _, kind := range []Kind{WhiteNoise, WhiteNoise2} {
		s := NewShape(kind)
		var pos, neg int
		for i := 0; i < 4000; i++ {
			v := s.Sample(0.5, 440, float64(i)/48000, 0.5, 0)
			if v > 0.5 || v < -0.5 {
				t.Fatalf("%v out of range: %v", kind, v)
			}
			if v > 0 {
				pos++
			} else if v < 0 {
				neg++
			}
		}
		if pos == 0 || neg == 0 {
			t.Fatalf("%v not noisy: pos=%d neg=%d", kind, pos, neg)
		}
	}
}

func TestEnvelopeStages(t *testing.T) {
	o := New(Sinus, ADSR{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.2})
	cases := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{0.05, 0.5},
		{0.1, 1},
		{0.15, 0.75},
		{0.2, 0.5},
		{3, 0.5},
	}
	for _, tc := range cases {
		if got := o.Level(tc.t); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Level(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestReleaseIsContinuous(t *testing.T) {
	o := New(Sinus, ADSR{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.2})
	// release in the middle of the attack ramp
	at := 0.05
	before := o.Level(at - 1e-6)
	o.Release(at)
	if !o.IsReleased() {
		t.Fatal("expected released")
	}
	after := o.Level(at + 1e-6)
	if math.Abs(before-after) > 1e-4 {
		t.Fatalf("discontinuity at release: before %v after %v", before, after)
	}
	if got := o.Level(at + 0.1); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("half-way through release: got %v, want 0.25", got)
	}
	if got := o.Level(at + 0.25); got != 0 {
		t.Fatalf("after release: got %v, want 0", got)
	}
	if got := o.Oscillate(1, 440, at+0.5); got != 0 {
		t.Fatalf("silent after release, got %v", got)
	}
}

func TestReleaseCurve(t *testing.T) {
	o := New(Saw, ADSR{Sustain: 1, Release: 1, Curve: 2})
	o.Release(1)
	if got := o.Level(1.5); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("curved release: got %v, want 0.25", got)
	}
}

func TestCloneResetsEnvelope(t *testing.T) {
	o := New(Square, ADSR{Sustain: 1, Release: 0.1})
	o.SetDuty(0.125)
	o.SetPhase(0.25)
	o.Release(0.5)
	c := o.Clone()
	if c.IsReleased() {
		t.Fatal("clone must start unreleased")
	}
	if c.Kind() != Square || c.Duty() != 0.125 || c.Phase() != 0.25 || c.Envelope() != o.Envelope() {
		t.Fatalf("clone lost configuration: %+v", c)
	}
	if c == o {
		t.Fatal("clone must be a distinct instance")
	}
	if !o.IsReleased() {
		t.Fatal("original must keep its runtime")
	}
}

func TestNoiseClonesRepeat(t *testing.T) {
	for _, kind := range []Kind{WhiteNoise, WhiteNoise2} {
		tmpl := New(kind, ADSR{Sustain: 1})
		a, b := tmpl.Clone(), tmpl.Clone()
		for i := 0; i < 64; i++ {
			ts := float64(i) / 1000
			if x, y := a.Oscillate(1, 440, ts), b.Oscillate(1, 440, ts); x != y {
				t.Fatalf("%v sample %d: clones differ, %v vs %v", kind, i, x, y)
			}
		}
	}
}

func TestParseKind(t *testing.T) {
	for k := Sinus; k < numKinds; k++ {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("organ"); err == nil {
		t.Fatal("expected error for unknown waveform")
	}
}
