package master

import "math"

// Compressor reduces gain above a threshold. Both sides share one
// envelope so the stereo image does not shift under compression.
type Compressor struct {
	threshold float64 // linear
	ratio     float64
	attack    float64 // follower coefficients
	release   float64
	makeup    float64
	env       float64
}

// NewCompressor takes the threshold and makeup gain in dB and the attack
// and release times in milliseconds.
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		ratio:     ratio,
		attack:    follower(sampleRate, attackMs),
		release:   follower(sampleRate, releaseMs),
		makeup:    dbToGain(makeupDB),
	}
}

func dbToGain(db float64) float64 { return math.Pow(10, db/20) }

func follower(sampleRate int, ms float64) float64 {
	n := ms * float64(sampleRate) / 1000
	if n <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/n)
}

func (c *Compressor) Process(l, r float64) (float64, float64) {
	level := math.Max(math.Abs(l), math.Abs(r))
	if level > c.env {
		c.env += c.attack * (level - c.env)
	} else {
		c.env += c.release * (level - c.env)
	}
	g := c.makeup
	if c.env > c.threshold {
		g *= math.Pow(c.env/c.threshold, 1/c.ratio-1)
	}
	return l * g, r * g
}

// Gain returns the gain the compressor currently applies, makeup included.
func (c *Compressor) Gain() float64 {
	if c.env > c.threshold {
		return c.makeup * math.Pow(c.env/c.threshold, 1/c.ratio-1)
	}
	return c.makeup
}

func (c *Compressor) Reset() { c.env = 0 }
