package lfo

import "math"

// Waveform constants for LFO shapes.
const (
	WaveSine     = 0
	WaveTriangle = 1
	WaveSquare   = 2
	WaveSaw      = 3
)

// LFO is a low-frequency oscillator evaluated from the time elapsed since
// its anchor, so its output does not depend on how often it is sampled.
type LFO struct {
	Depth    float64 // modulation depth (semitones for vibrato, gain for tremolo)
	RateHz   float64
	Waveform int // 0=sine, 1=triangle, 2=square, 3=saw
}

// Value returns the modulation in [-Depth, +Depth] at elapsed seconds.
// It starts at 0 for every shape but square.
func (l LFO) Value(elapsed float64) float64 {
	if !l.Active() || elapsed < 0 {
		return 0
	}
	return l.wave(l.RateHz*elapsed) * l.Depth
}

// Dip returns a unipolar value in [0, Depth], used for tremolo. It is the
// waveform shifted by a quarter cycle, so sine, triangle and square start
// at 0 and the gain is continuous when the effect starts.
func (l LFO) Dip(elapsed float64) float64 {
	if !l.Active() || elapsed < 0 {
		return 0
	}
	return l.Depth * 0.5 * (1 - l.wave(l.RateHz*elapsed+0.25))
}

// wave is the bipolar shape at phase, in cycles.
func (l LFO) wave(phase float64) float64 {
	phase -= math.Floor(phase)
	switch l.Waveform {
	case WaveTriangle:
		// 0 → 1 → 0 → -1 → 0
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveSaw:
		if phase < 0.5 {
			return 2 * phase
		}
		return 2*phase - 2
	default: // WaveSine
		return math.Sin(2 * math.Pi * phase)
	}
}

// Active returns true if the LFO has non-zero depth and rate.
func (l LFO) Active() bool {
	return l.Depth != 0 && l.RateHz != 0
}
