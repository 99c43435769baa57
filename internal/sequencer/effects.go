package sequencer

import (
	"math"

	"github.com/cbegin/chiptrack-go/internal/lfo"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// Effect slots. Each slot holds at most one running effect; a new code of
// the same family replaces it without touching the others.
const (
	slotVolume = iota
	slotPitch
	slotPortamento
	slotTremolo
	slotVibrato
	slotPan
	slotArpeggio
	slotTrigger
	slotTranspose
	numSlots
)

const arpeggioSteps = 6

// modulation is what the running effects make of a channel (or of the
// master bus) at one instant.
type modulation struct {
	pitch  float64 // semitones added to the key
	gain   float64
	volume float64
	pan    float64
	onset  float64 // song time the note (re)starts
	cut    float64 // song time of a scheduled release, <0 when none
}

// effect is one running effect. apply is a pure function of the time
// elapsed since the effect's own anchor.
type effect interface {
	apply(m *modulation, t, tick float64)
}

type effectBank [numSlots]effect

func (b *effectBank) apply(m *modulation, t, tick float64) {
	for _, e := range b {
		if e != nil {
			e.apply(m, t, tick)
		}
	}
}

// glide returns the pitch offset a running portamento still adds at t.
func (b *effectBank) glide(t, tick float64) float64 {
	if p, ok := b[slotPortamento].(*portamento); ok {
		return p.offset(t, tick)
	}
	return 0
}

// decodeState carries what a new effect needs to continue smoothly from
// the state it replaces.
type decodeState struct {
	volume float64 // volume before any slide
	glide  float64 // distance from the previous pitch to the new note
}

// decode installs the effect e read at song time at. Master kinds must be
// mapped with channelKind first.
func (b *effectBank) decode(k Kind, e song.Effect, at, tick float64, st decodeState) {
	x, y, z := xyz(e)
	hi, lo := pair(e)
	switch k {
	case KindVolumeSlide:
		base := st.volume
		if old, ok := b[slotVolume].(*volumeSlide); ok {
			base = old.value(at)
		}
		b[slotVolume] = &volumeSlide{start: at, base: base, rate: (float64(hi) - float64(lo)) / 100}
	case KindPitchSlide:
		limit := float64(x)
		if x == 0 {
			limit = 96
		}
		var base float64
		if old, ok := b[slotPitch].(*pitchSlide); ok {
			base = old.value(at)
		}
		b[slotPitch] = &pitchSlide{start: at, base: base, rate: (float64(y) - float64(z)) / 10, limit: limit}
	case KindPortamento:
		diff := st.glide
		if old, ok := b[slotPortamento].(*portamento); ok {
			diff = old.offset(at, tick)
		}
		b[slotPortamento] = &portamento{start: at, diff: diff, rate: float64(uint32(e)&0xFFFF) / 100}
	case KindTremolo:
		if x == 0 || y == 0 {
			b[slotTremolo] = nil
			return
		}
		b[slotTremolo] = &tremolo{start: at, lfo: lfo.LFO{Depth: float64(y) / 255, RateHz: float64(x) / 10, Waveform: int(z)}}
	case KindVibrato:
		if x == 0 || y == 0 {
			b[slotVibrato] = nil
			return
		}
		b[slotVibrato] = &vibrato{start: at, lfo: lfo.LFO{Depth: float64(y) / 100, RateHz: float64(x) / 10, Waveform: int(z)}}
	case KindPanSlide:
		b[slotPan] = &panSlide{start: at, from: float64(x) / 255, to: float64(y) / 255, dur: float64(z) * tick}
	case KindArpeggio:
		steps := arpeggioOffsets(e)
		if len(steps) == 0 {
			b[slotArpeggio] = nil
			return
		}
		b[slotArpeggio] = &arpeggio{start: at, steps: steps}
	case KindNoteDelay:
		r := b.trigger(at)
		r.delay, r.cut = int(x), int(y)
	case KindRetrigger:
		r := b.trigger(at)
		r.interval, r.count = int(x), int(y)
	case KindTranspose:
		n := int(z)
		if n == 0 {
			n = 1
		}
		b[slotTranspose] = &transpose{start: at, interval: int(x), count: n, semis: float64(int8(y))}
	}
}

// trigger returns the note trigger record for a row at song time at. Delay
// and retrigger codes on the same row share one record.
func (b *effectBank) trigger(at float64) *trigger {
	if r, ok := b[slotTrigger].(*trigger); ok && r.start == at {
		return r
	}
	r := &trigger{start: at}
	b[slotTrigger] = r
	return r
}

// channelKind maps a master effect to the channel effect it mirrors.
func channelKind(k Kind) Kind {
	switch k {
	case KindMasterVolSlide:
		return KindVolumeSlide
	case KindMasterPitchSlide:
		return KindPitchSlide
	case KindMasterPanSlide:
		return KindPanSlide
	case KindMasterTremolo:
		return KindTremolo
	case KindMasterVibrato:
		return KindVibrato
	}
	return k
}

func arpeggioOffsets(e song.Effect) []int8 {
	var all [arpeggioSteps]int8
	n := 0
	for i := 0; i < arpeggioSteps; i++ {
		shift := uint(4 * (arpeggioSteps - 1 - i))
		all[i] = int8((uint32(e) >> shift) & 0xF)
		if all[i] != 0 {
			n = i + 1
		}
	}
	return append([]int8(nil), all[:n]...)
}

// ticks returns the whole ticks in elapsed, tolerating rounding error at
// exact tick boundaries.
func ticks(elapsed, tick float64) float64 {
	if tick <= 0 {
		return 0
	}
	return math.Floor(elapsed/tick + 1e-9)
}

type volumeSlide struct {
	start, base, rate float64
}

func (s *volumeSlide) value(t float64) float64 {
	return clamp(s.base+s.rate*(t-s.start), 0, 1)
}

func (s *volumeSlide) apply(m *modulation, t, _ float64) { m.volume = s.value(t) }

type pitchSlide struct {
	start, base, rate, limit float64
}

func (s *pitchSlide) value(t float64) float64 {
	return clamp(s.base+s.rate*(t-s.start), -s.limit, s.limit)
}

func (s *pitchSlide) apply(m *modulation, t, _ float64) { m.pitch += s.value(t) }

// portamento glides from the previous pitch to the new one, closing rate
// semitones every tick.
type portamento struct {
	start, diff, rate float64
}

func (p *portamento) offset(t, tick float64) float64 {
	if p.diff == 0 {
		return 0
	}
	left := math.Abs(p.diff) - p.rate*ticks(t-p.start, tick)
	if left <= 0 {
		return 0
	}
	return math.Copysign(left, p.diff)
}

func (p *portamento) apply(m *modulation, t, tick float64) { m.pitch += p.offset(t, tick) }

type tremolo struct {
	start float64
	lfo   lfo.LFO
}

func (r *tremolo) apply(m *modulation, t, _ float64) { m.gain *= 1 - r.lfo.Dip(t-r.start) }

type vibrato struct {
	start float64
	lfo   lfo.LFO
}

func (v *vibrato) apply(m *modulation, t, _ float64) { m.pitch += v.lfo.Value(t - v.start) }

type panSlide struct {
	start, from, to, dur float64
}

func (s *panSlide) apply(m *modulation, t, _ float64) {
	x := 1.0
	if s.dur > 0 {
		x = clamp((t-s.start)/s.dur, 0, 1)
	}
	m.pan = s.from + (s.to-s.from)*x
}

type arpeggio struct {
	start float64
	steps []int8
}

func (a *arpeggio) apply(m *modulation, t, tick float64) {
	i := int(ticks(t-a.start, tick)) % len(a.steps)
	if i < 0 {
		i = 0
	}
	m.pitch += float64(a.steps[i])
}

// trigger delays, repeats and cuts the note.
type trigger struct {
	start           float64
	delay, cut      int
	interval, count int
}

func (r *trigger) apply(m *modulation, t, tick float64) {
	if r.delay > 0 {
		if d := r.start + float64(r.delay)*tick; d > m.onset {
			m.onset = d
		}
	}
	if r.interval > 0 {
		base := math.Max(r.start, m.onset)
		every := float64(r.interval) * tick
		n := ticks(t-base, every)
		if r.count > 0 && n > float64(r.count) {
			n = float64(r.count)
		}
		if n >= 1 {
			m.onset = base + n*every
		}
	}
	if r.cut > 0 {
		m.cut = m.onset + float64(r.cut)*tick
	}
}

// transpose shifts the key by semis every interval ticks, count times.
type transpose struct {
	start           float64
	interval, count int
	semis           float64
}

func (r *transpose) apply(m *modulation, t, tick float64) {
	n := r.count
	if r.interval > 0 {
		if k := int(ticks(t-r.start, float64(r.interval)*tick)); k < n {
			n = k
		}
	}
	if n > 0 {
		m.pitch += r.semis * float64(n)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
