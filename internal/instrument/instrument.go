package instrument

import (
	"github.com/cbegin/chiptrack-go/internal/osc"
	"github.com/cbegin/chiptrack-go/internal/pitch"
)

// Instrument is an oscillator plus a global volume. Bank entries are
// templates: a channel plays a Clone so envelope state is never shared.
type Instrument struct {
	name   string
	osc    *osc.Oscillator
	volume float64
}

func New(o *osc.Oscillator, volume float64) *Instrument {
	return &Instrument{osc: o, volume: volume}
}

// Named is New with a display name, used by song files and the CLI.
func Named(name string, o *osc.Oscillator, volume float64) *Instrument {
	return &Instrument{name: name, osc: o, volume: volume}
}

func (in *Instrument) Clone() *Instrument {
	var o *osc.Oscillator
	if in.osc != nil {
		o = in.osc.Clone()
	}
	return &Instrument{name: in.name, osc: o, volume: in.volume}
}

func (in *Instrument) Name() string                { return in.name }
func (in *Instrument) Oscillator() *osc.Oscillator { return in.osc }
func (in *Instrument) Volume() float64             { return in.volume }

// PlayKey renders key k at note time t. Sentinel keys are silent.
func (in *Instrument) PlayKey(a float64, k pitch.Key, t float64) float64 {
	if !k.IsNote() {
		return 0
	}
	return in.PlayPitch(a, pitch.Key2Pitch(k), t)
}

// PlayPitch renders a raw pitch (semitones from A4) at note time t. The
// amplitude is not clamped.
func (in *Instrument) PlayPitch(a, p, t float64) float64 {
	if in.osc == nil {
		return 0
	}
	return in.osc.Oscillate(in.volume*a, pitch.Pitch2Freq(p), t)
}

// Release starts the release ramp at note time at.
func (in *Instrument) Release(at float64) {
	if in.osc != nil {
		in.osc.Release(at)
	}
}

func (in *Instrument) IsReleased() bool {
	return in.osc != nil && in.osc.IsReleased()
}
