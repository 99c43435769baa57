package master

import "math"

// Drive is a tanh soft clipper followed by a one-pole lowpass that tames
// the added harmonics.
type Drive struct {
	pre, post float64
	alpha     float64 // 0 disables the lowpass
	lpL, lpR  float64
}

func NewDrive(sampleRate int, pre, post, cutoff float64) *Drive {
	d := &Drive{pre: pre, post: post}
	if cutoff > 0 && cutoff < float64(sampleRate)/2 {
		dt := 1 / float64(sampleRate)
		rc := 1 / (2 * math.Pi * cutoff)
		d.alpha = dt / (rc + dt)
	}
	return d
}

func (d *Drive) Process(l, r float64) (float64, float64) {
	l = math.Tanh(l*d.pre) * d.post
	r = math.Tanh(r*d.pre) * d.post
	if d.alpha == 0 {
		return l, r
	}
	d.lpL += d.alpha * (l - d.lpL)
	d.lpR += d.alpha * (r - d.lpR)
	return d.lpL, d.lpR
}

func (d *Drive) Reset() { d.lpL, d.lpR = 0, 0 }
