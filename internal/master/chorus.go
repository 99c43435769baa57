package master

import "github.com/cbegin/chiptrack-go/internal/lfo"

// Chorus mixes in a copy of the signal read from a delay line whose length
// is swept by an LFO. Short delays with feedback give a flanger.
type Chorus struct {
	left, right []float64
	pos         int
	base        float64 // centre delay in samples
	sweep       lfo.LFO
	rate        float64
	n           int64 // frames processed, the LFO clock
	feedback    float64
	wet         float64
}

// NewChorus sweeps a delay of delayMs by ±depthMs at rateHz. wave is an
// lfo waveform constant.
func NewChorus(sampleRate int, delayMs, feedback, depthMs, rateHz, wet float64, wave int) *Chorus {
	rate := float64(sampleRate)
	base := delayMs * rate / 1000
	depth := depthMs * rate / 1000
	size := max(int(base+depth)+2, 4)
	return &Chorus{
		left:     make([]float64, size),
		right:    make([]float64, size),
		base:     base,
		sweep:    lfo.LFO{Depth: depth, RateHz: rateHz, Waveform: wave},
		rate:     rate,
		feedback: clamp(feedback, 0, 0.9),
		wet:      clamp(wet, 0, 1),
	}
}

func (c *Chorus) Process(l, r float64) (float64, float64) {
	size := len(c.left)
	delay := clamp(c.base+c.sweep.Value(float64(c.n)/c.rate), 1, float64(size-2))
	c.n++

	read := float64(c.pos) - delay
	if read < 0 {
		read += float64(size)
	}
	i := int(read)
	frac := read - float64(i)
	j := i + 1
	if j == size {
		j = 0
	}
	dl := c.left[i]*(1-frac) + c.left[j]*frac
	dr := c.right[i]*(1-frac) + c.right[j]*frac

	c.left[c.pos] = l + dl*c.feedback
	c.right[c.pos] = r + dr*c.feedback
	if c.pos++; c.pos == size {
		c.pos = 0
	}
	return l + (dl-l)*c.wet, r + (dr-r)*c.wet
}

func (c *Chorus) Reset() {
	clear(c.left)
	clear(c.right)
	c.pos = 0
	c.n = 0
}
