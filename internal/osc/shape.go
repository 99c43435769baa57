package osc

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

const twoPi = math.Pi * 2

// Kind names a waveform.
type Kind int

const (
	Sinus Kind = iota
	Square
	Triangle
	Saw
	WhiteNoise
	WhiteNoise2
	numKinds
)

var kindNames = [numKinds]string{"sinus", "square", "triangle", "saw", "whitenoise", "whitenoise2"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the waveform names used in song files.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sinus", "sine", "sin":
		return Sinus, nil
	case "square", "pulse", "sqr":
		return Square, nil
	case "triangle", "tri":
		return Triangle, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "whitenoise", "noise":
		return WhiteNoise, nil
	case "whitenoise2", "noise2", "lfsr":
		return WhiteNoise2, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", name)
}

// Shape computes a waveform value. Stateless shapes return themselves from
// Clone; stateful ones (noise) return a fresh generator.
type Shape interface {
	Sample(a, f, t, duty, phase float64) float64
	Kind() Kind
	Clone() Shape
}

// NewShape returns the shape for kind; unknown kinds fall back to Sinus.
func NewShape(kind Kind) Shape {
	switch kind {
	case Square:
		return square{}
	case Triangle:
		return triangle{}
	case Saw:
		return saw{}
	case WhiteNoise:
		return newNoise(noiseSeed)
	case WhiteNoise2:
		return newLFSRNoise()
	default:
		return sinus{}
	}
}

// cycle returns the position in [0,1) within the current period.
func cycle(f, t, phase float64) float64 {
	x := f*t + phase
	return x - math.Floor(x)
}

type sinus struct{}

func (sinus) Sample(a, f, t, _, phase float64) float64 {
	return a * math.Sin(twoPi*(f*t+phase))
}
func (sinus) Kind() Kind     { return Sinus }
func (s sinus) Clone() Shape { return s }

type square struct{}

func (square) Sample(a, f, t, duty, phase float64) float64 {
	if duty <= 0 || duty >= 1 {
		duty = 0.5
	}
	if cycle(f, t, phase) < duty {
		return a
	}
	return -a
}
func (square) Kind() Kind     { return Square }
func (s square) Clone() Shape { return s }

type triangle struct{}

func (triangle) Sample(a, f, t, _, phase float64) float64 {
	return a * (4*math.Abs(cycle(f, t, phase)-0.5) - 1)
}
func (triangle) Kind() Kind     { return Triangle }
func (s triangle) Clone() Shape { return s }

type saw struct{}

func (saw) Sample(a, f, t, _, phase float64) float64 {
	return a * (2*cycle(f, t, phase) - 1)
}
func (saw) Kind() Kind     { return Saw }
func (s saw) Clone() Shape { return s }

// noise draws a fresh uniform value on every call. Clones restart the
// sequence from the same seed, so a note always sounds the same.
type noise struct {
	seed int64
	rng  *rand.Rand
}

const noiseSeed = 0x5eed

func newNoise(seed int64) *noise {
	return &noise{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (n *noise) Sample(a, _, _, _, _ float64) float64 {
	return a * (2*n.rng.Float64() - 1)
}
func (n *noise) Kind() Kind   { return WhiteNoise }
func (n *noise) Clone() Shape { return newNoise(n.seed) }

// lfsrNoise is pitched: the 16-bit LFSR is clocked once per period, so the
// noise color follows the note frequency.
type lfsrNoise struct {
	reg    uint16
	period int64
}

func newLFSRNoise() *lfsrNoise {
	return &lfsrNoise{reg: 0xACE1, period: -1}
}

func (n *lfsrNoise) Sample(a, f, t, _, phase float64) float64 {
	p := int64(math.Floor(f*t + phase))
	for n.period < p {
		bit := (n.reg ^ (n.reg >> 1)) & 1
		n.reg = (n.reg >> 1) | (bit << 15)
		n.period++
		// jumps of more than a few periods only need the final state
		if p-n.period > 64 {
			n.period = p - 64
		}
	}
	if n.reg&1 == 1 {
		return a
	}
	return -a
}
func (n *lfsrNoise) Kind() Kind   { return WhiteNoise2 }
func (n *lfsrNoise) Clone() Shape { return newLFSRNoise() }
