package master

import "math"

// EQ splits the signal at two crossover frequencies with one-pole filters
// and applies a gain per band. Unity gains pass audio through unchanged.
type EQ struct {
	low, mid, high float64
	lpAlpha        float64
	hpAlpha        float64
	lpL, lpR       float64
	hpL, hpR       float64
}

func NewEQ(sampleRate int, low, mid, high, lowHz, highHz float64) *EQ {
	return &EQ{
		low:     low,
		mid:     mid,
		high:    high,
		lpAlpha: onePole(lowHz, sampleRate),
		hpAlpha: onePole(highHz, sampleRate),
	}
}

func onePole(hz float64, sampleRate int) float64 {
	rc := 1 / (2 * math.Pi * hz)
	dt := 1 / float64(sampleRate)
	return dt / (rc + dt)
}

func (eq *EQ) Process(l, r float64) (float64, float64) {
	eq.lpL += eq.lpAlpha * (l - eq.lpL)
	eq.lpR += eq.lpAlpha * (r - eq.lpR)
	eq.hpL += eq.hpAlpha * (l - eq.hpL)
	eq.hpR += eq.hpAlpha * (r - eq.hpR)

	lowL, lowR := eq.lpL, eq.lpR
	highL, highR := l-eq.hpL, r-eq.hpR
	midL, midR := l-lowL-highL, r-lowR-highR
	return lowL*eq.low + midL*eq.mid + highL*eq.high,
		lowR*eq.low + midR*eq.mid + highR*eq.high
}

func (eq *EQ) Reset() {
	eq.lpL, eq.lpR = 0, 0
	eq.hpL, eq.hpR = 0, 0
}
