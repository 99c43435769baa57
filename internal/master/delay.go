package master

// Delay is a stereo echo whose feedback can cross between sides.
type Delay struct {
	left, right []float64
	pos         int
	feedback    float64
	cross       float64
	wet         float64
}

// NewDelay returns an echo of ms milliseconds. feedback is capped at 0.95;
// cross and wet are fractions.
func NewDelay(sampleRate int, ms, feedback, cross, wet float64) *Delay {
	n := int(ms * float64(sampleRate) / 1000)
	if n < 1 {
		n = 1
	}
	return &Delay{
		left:     make([]float64, n),
		right:    make([]float64, n),
		feedback: clamp(feedback, 0, 0.95),
		cross:    clamp(cross, 0, 1),
		wet:      clamp(wet, 0, 1),
	}
}

func (d *Delay) Process(l, r float64) (float64, float64) {
	el, er := d.left[d.pos], d.right[d.pos]
	straight := d.feedback * (1 - d.cross)
	swapped := d.feedback * d.cross
	d.left[d.pos] = l + el*straight + er*swapped
	d.right[d.pos] = r + er*straight + el*swapped
	if d.pos++; d.pos == len(d.left) {
		d.pos = 0
	}
	return l + (el-l)*d.wet, r + (er-r)*d.wet
}

func (d *Delay) Reset() {
	clear(d.left)
	clear(d.right)
	d.pos = 0
}
