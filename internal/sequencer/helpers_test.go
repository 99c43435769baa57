package sequencer

import (
	"math"
	"testing"

	"github.com/cbegin/chiptrack-go/internal/instrument"
	"github.com/cbegin/chiptrack-go/internal/osc"
	"github.com/cbegin/chiptrack-go/internal/pitch"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// probe outputs amplitude times frequency, so a sample reveals the pitch
// and gain the channel asked for.
type probe struct{}

func (probe) Sample(a, f, _, _, _ float64) float64 { return a * f }
func (probe) Kind() osc.Kind                       { return osc.Sinus }
func (p probe) Clone() osc.Shape                   { return p }

var flat = osc.ADSR{Sustain: 1}

func probeInstrument() *instrument.Instrument {
	return instrument.New(osc.NewWithShape(probe{}, 0.5, 0, flat), 1)
}

func sineInstrument() *instrument.Instrument {
	return instrument.New(osc.New(osc.Sinus, flat), 1)
}

var (
	a4 = pitch.NewKey(pitch.A, 4)
	c4 = pitch.NewKey(pitch.C, 4)
	d4 = pitch.NewKey(pitch.D, 4)
	a5 = pitch.NewKey(pitch.A, 5)
)

func note(k pitch.Key, fx ...song.Effect) song.Instruction {
	return song.NewInstruction(0, k, song.Continue, fx...)
}

func fxRow(fx ...song.Effect) song.Instruction {
	in := song.Empty()
	in.Effects = fx
	return in
}

// column pads rows with empty instructions up to n.
func column(n int, rows ...song.Instruction) *song.Pattern {
	p := song.NewPattern(n, 0)
	copy(p.Instructions, rows)
	return p
}

// single builds a one-channel, one-frame track.
func single(t *testing.T, clock, basetime, speed float64, p *song.Pattern, bank ...*instrument.Instrument) (*Track, []Channel) {
	t.Helper()
	if len(bank) == 0 {
		bank = []*instrument.Instrument{probeInstrument()}
	}
	tr, err := NewTrack(Config{
		Clock:       clock,
		BaseTime:    basetime,
		Speed:       speed,
		Rows:        p.Rows(),
		Frames:      1,
		Channels:    1,
		Instruments: bank,
		Patterns:    []*song.Pattern{p},
		Order:       [][]int{{0}},
	})
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	return tr, NewChannels(1)
}

func approx(t *testing.T, what string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.12f, want %.12f", what, got, want)
	}
}

func semis(n float64) float64 { return 440 * math.Pow(2, n/12) }
