package osc

import "math"

// ADSR shapes amplitude over a note. Attack, Decay and Release are in
// seconds, Sustain is a level. Curve bends the release ramp: 0 or 1 is
// linear, larger values fall faster at first.
type ADSR struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
	Curve   float64
}

// DefaultADSR is a full-level organ envelope with short clickless edges.
var DefaultADSR = ADSR{Attack: 0.002, Sustain: 1, Release: 0.02}

// Oscillator pairs a waveform with an amplitude envelope. It carries the
// envelope runtime of one sounding note, so every voice needs its own
// instance; use Clone.
type Oscillator struct {
	shape Shape
	duty  float64
	phase float64
	env   ADSR

	released     bool
	releaseAt    float64 // note time of the release trigger
	releaseLevel float64 // envelope level captured at releaseAt
}

func New(kind Kind, env ADSR) *Oscillator {
	return &Oscillator{shape: NewShape(kind), duty: 0.5, env: env}
}

// NewWithShape builds an oscillator around a custom waveform.
func NewWithShape(shape Shape, duty, phase float64, env ADSR) *Oscillator {
	if shape == nil {
		shape = sinus{}
	}
	return &Oscillator{shape: shape, duty: duty, phase: phase, env: env}
}

// Clone copies the configuration and starts with a fresh envelope.
func (o *Oscillator) Clone() *Oscillator {
	return &Oscillator{
		shape: o.shape.Clone(),
		duty:  o.duty,
		phase: o.phase,
		env:   o.env,
	}
}

func (o *Oscillator) Kind() Kind         { return o.shape.Kind() }
func (o *Oscillator) Duty() float64      { return o.duty }
func (o *Oscillator) SetDuty(dc float64) { o.duty = dc }
func (o *Oscillator) Phase() float64     { return o.phase }
func (o *Oscillator) SetPhase(p float64) { o.phase = p }
func (o *Oscillator) Envelope() ADSR     { return o.env }
func (o *Oscillator) IsReleased() bool   { return o.released }

// Reset clears the envelope runtime, as if no note had been played.
func (o *Oscillator) Reset() {
	o.released = false
	o.releaseAt = 0
	o.releaseLevel = 0
}

// Release starts the release ramp at note time at. The ramp begins at the
// level the envelope had at that instant. Releasing twice keeps the first
// trigger.
func (o *Oscillator) Release(at float64) {
	if o.released {
		return
	}
	if at < 0 {
		at = 0
	}
	o.releaseLevel = o.held(at)
	o.releaseAt = at
	o.released = true
}

// Level returns the envelope level at note time t.
func (o *Oscillator) Level(t float64) float64 {
	if t < 0 {
		return 0
	}
	if !o.released || t < o.releaseAt {
		return o.held(t)
	}
	rt := t - o.releaseAt
	if o.env.Release <= 0 || rt >= o.env.Release {
		return 0
	}
	x := 1 - rt/o.env.Release
	if o.env.Curve > 0 && o.env.Curve != 1 {
		x = math.Pow(x, o.env.Curve)
	}
	return o.releaseLevel * x
}

// held is the attack/decay/sustain level before any release.
func (o *Oscillator) held(t float64) float64 {
	e := o.env
	if t < e.Attack {
		return t / e.Attack
	}
	t -= e.Attack
	if t < e.Decay {
		return 1 - (1-e.Sustain)*t/e.Decay
	}
	return e.Sustain
}

// Oscillate returns the enveloped waveform for amplitude a and frequency f
// at note time t (seconds since note-on).
func (o *Oscillator) Oscillate(a, f, t float64) float64 {
	level := o.Level(t)
	if level == 0 {
		return 0
	}
	return o.shape.Sample(a*level, f, t, o.duty, o.phase)
}
