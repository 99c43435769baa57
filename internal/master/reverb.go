package master

// Reverb is a Schroeder reverberator: four parallel combs into two
// allpasses, fed with the mono sum.
type Reverb struct {
	combs [4]line
	diff  [2]line
	wet   float64
}

// line is a circular delay used as a comb or an allpass.
type line struct {
	buf []float64
	pos int
	fb  float64
}

func newLine(n int, fb float64) line {
	return line{buf: make([]float64, max(n, 1)), fb: fb}
}

func (d *line) comb(in float64) float64 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.step()
	return out
}

func (d *line) allpass(in float64) float64 {
	held := d.buf[d.pos]
	d.buf[d.pos] = in + held*d.fb
	d.step()
	return held - in
}

func (d *line) step() {
	if d.pos++; d.pos == len(d.buf) {
		d.pos = 0
	}
}

// comb and allpass lengths relative to the room base, in thousandths.
var (
	combRatios    = [4]int{1000, 1117, 1271, 1437}
	allpassRatios = [2]int{347, 213}
)

// NewReverb sizes the combs from room (0..1); feedback sets the decay and
// is capped at 0.95.
func NewReverb(sampleRate int, room, feedback, wet float64) *Reverb {
	base := max(int(float64(sampleRate)*room*0.05), 10)
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{wet: clamp(wet, 0, 1)}
	for i, k := range combRatios {
		r.combs[i] = newLine(base*k/1000, fb)
	}
	for i, k := range allpassRatios {
		r.diff[i] = newLine(base*k/1000, 0.5)
	}
	return r
}

func (r *Reverb) Process(l, rt float64) (float64, float64) {
	mono := (l + rt) / 2
	var tail float64
	for i := range r.combs {
		tail += r.combs[i].comb(mono)
	}
	tail /= float64(len(r.combs))
	for i := range r.diff {
		tail = r.diff[i].allpass(tail)
	}
	return l + (tail-l)*r.wet, rt + (tail-rt)*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.diff {
		clear(r.diff[i].buf)
		r.diff[i].pos = 0
	}
}
