package sequencer

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/chiptrack-go/internal/instrument"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// ErrInvalidTrack is wrapped by every NewTrack failure.
var ErrInvalidTrack = errors.New("invalid track")

// Config describes a song for NewTrack. Slices are copied; the caller may
// reuse them afterwards.
type Config struct {
	Clock    float64 // ticks per second
	BaseTime float64 // clock ticks per speed unit
	Speed    float64 // speed units per row

	Rows     int
	Frames   int
	Channels int

	Instruments       []*instrument.Instrument
	Patterns          []*song.Pattern
	Order             [][]int // [channel][frame] index into Patterns
	EffectsPerChannel []int   // nil means no per-channel cap
}

// ArrangementConfig combines timing and an instrument bank with the pattern
// data of a.
func ArrangementConfig(clock, basetime, speed float64, bank []*instrument.Instrument, a *song.Arrangement) Config {
	return Config{
		Clock:             clock,
		BaseTime:          basetime,
		Speed:             speed,
		Rows:              a.Rows,
		Frames:            a.Frames,
		Channels:          a.Channels,
		Instruments:       bank,
		Patterns:          a.Patterns,
		Order:             a.Order,
		EffectsPerChannel: a.EffectsPerChannel,
	}
}

// Position is a point in the order matrix.
type Position struct {
	Frame int
	Row   int
}

// Track sequences patterns in time. It is driven by Play with
// non-decreasing times and is not safe for concurrent use.
type Track struct {
	clock, basetime, speed float64
	initialSpeed           float64
	step, tick             float64
	rows, frames, channels int

	instruments []*instrument.Instrument
	patterns    []*song.Pattern
	order       [][]int
	fxLimit     []int
	duration    float64

	started  bool
	stopped  bool
	pos      Position
	segStart float64 // time of the first row played at the current speed
	segRows  int     // rows started since segStart
	rowStart float64
	jump     *Position
	loops    int

	volume  float64
	panning float64
	master  effectBank
}

// NewTrack validates cfg and returns a track positioned before row 0.
func NewTrack(cfg Config) (*Track, error) {
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	tr := &Track{
		clock:        cfg.Clock,
		basetime:     cfg.BaseTime,
		initialSpeed: cfg.Speed,
		rows:         cfg.Rows,
		frames:       cfg.Frames,
		channels:     cfg.Channels,
		instruments:  make([]*instrument.Instrument, len(cfg.Instruments)),
		patterns:     make([]*song.Pattern, len(cfg.Patterns)),
		order:        make([][]int, cfg.Channels),
		fxLimit:      make([]int, cfg.Channels),
	}
	for i, in := range cfg.Instruments {
		tr.instruments[i] = in.Clone()
	}
	for i, p := range cfg.Patterns {
		if p != nil {
			tr.patterns[i] = p.Clone()
		}
	}
	for i := range tr.order {
		tr.order[i] = append([]int(nil), cfg.Order[i]...)
	}
	copy(tr.fxLimit, cfg.EffectsPerChannel)
	tr.tick = tr.basetime / tr.clock
	tr.Reset()
	tr.duration = tr.scanDuration()
	return tr, nil
}

func validate(cfg *Config) error {
	switch {
	case !(cfg.Clock > 0):
		return fmt.Errorf("%w: clock must be positive, got %v", ErrInvalidTrack, cfg.Clock)
	case !(cfg.BaseTime > 0):
		return fmt.Errorf("%w: basetime must be positive, got %v", ErrInvalidTrack, cfg.BaseTime)
	case !(cfg.Speed > 0):
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidTrack, cfg.Speed)
	case cfg.Rows <= 0:
		return fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidTrack, cfg.Rows)
	case cfg.Frames <= 0:
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidTrack, cfg.Frames)
	case cfg.Channels <= 0:
		return fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidTrack, cfg.Channels)
	case len(cfg.Instruments) >= song.Continue:
		return fmt.Errorf("%w: %d instruments, at most %d", ErrInvalidTrack, len(cfg.Instruments), song.Continue-1)
	}
	for i, in := range cfg.Instruments {
		if in == nil {
			return fmt.Errorf("%w: instrument %d is nil", ErrInvalidTrack, i)
		}
	}
	if cfg.EffectsPerChannel != nil && len(cfg.EffectsPerChannel) != cfg.Channels {
		return fmt.Errorf("%w: %d effect limits for %d channels", ErrInvalidTrack, len(cfg.EffectsPerChannel), cfg.Channels)
	}
	if len(cfg.Order) != cfg.Channels {
		return fmt.Errorf("%w: order has %d channels, want %d", ErrInvalidTrack, len(cfg.Order), cfg.Channels)
	}
	for ch, frames := range cfg.Order {
		if len(frames) != cfg.Frames {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidTrack, ch, len(frames), cfg.Frames)
		}
		for f, idx := range frames {
			if idx < 0 || idx >= len(cfg.Patterns) {
				return fmt.Errorf("%w: channel %d frame %d: pattern %d out of range", ErrInvalidTrack, ch, f, idx)
			}
			p := cfg.Patterns[idx]
			if p == nil {
				return fmt.Errorf("%w: pattern %d is nil", ErrInvalidTrack, idx)
			}
			if p.Rows() != cfg.Rows {
				return fmt.Errorf("%w: pattern %d has %d rows, want %d", ErrInvalidTrack, idx, p.Rows(), cfg.Rows)
			}
			for r, in := range p.Instructions {
				if in.HasInstrument() && int(in.Instrument) >= len(cfg.Instruments) {
					return fmt.Errorf("%w: pattern %d row %d: instrument %d not in bank of %d",
						ErrInvalidTrack, idx, r, in.Instrument, len(cfg.Instruments))
				}
			}
		}
	}
	return nil
}

func (tr *Track) Clock() float64    { return tr.clock }
func (tr *Track) BaseTime() float64 { return tr.basetime }
func (tr *Track) Speed() float64    { return tr.speed }

// Step is the duration of one row in seconds at the current speed.
func (tr *Track) Step() float64 { return tr.step }

// Tick is the duration of one speed unit in seconds.
func (tr *Track) Tick() float64 { return tr.tick }

func (tr *Track) Rows() int        { return tr.rows }
func (tr *Track) Frames() int      { return tr.frames }
func (tr *Track) Channels() int    { return tr.channels }
func (tr *Track) Instruments() int { return len(tr.instruments) }

// Duration is the playing time of one pass through the order matrix,
// honouring speed changes and stop. Branches are not followed.
func (tr *Track) Duration() float64 { return tr.duration }

func (tr *Track) Position() Position { return tr.pos }
func (tr *Track) Stopped() bool      { return tr.stopped }

// Loops counts how many times playback wrapped past the last frame.
func (tr *Track) Loops() int { return tr.loops }

// Volume and Panning are the master settings before master effects.
func (tr *Track) Volume() float64  { return tr.volume }
func (tr *Track) Panning() float64 { return tr.panning }

// SetVolume overrides the master volume as a master volume code would.
func (tr *Track) SetVolume(v float64) {
	tr.volume = v
	if s, ok := tr.master[slotVolume].(*volumeSlide); ok {
		s.start, s.base = tr.rowStart, v
	}
}

// Reset rewinds the track to before row 0 with the initial speed and
// neutral master state. Channels must be reset separately.
func (tr *Track) Reset() {
	tr.speed = tr.initialSpeed
	tr.step = tr.speed * tr.tick
	tr.started = false
	tr.stopped = false
	tr.pos = Position{}
	tr.segStart, tr.segRows, tr.rowStart = 0, 0, 0
	tr.jump = nil
	tr.loops = 0
	tr.volume = 1
	tr.panning = 0.5
	tr.master = effectBank{}
}

// Play advances the track to song time t, dispatching every row whose
// start lies at or before t, and returns the stereo sample at t. Rows are
// dispatched at their own start time, so the result does not depend on
// how finely t is stepped.
func (tr *Track) Play(t float64, chans []Channel) (float64, float64) {
	if !tr.started {
		tr.started = true
		tr.dispatch(0, chans)
	}
	for !tr.stopped {
		next := tr.segStart + float64(tr.segRows+1)*tr.step
		if t < next {
			break
		}
		tr.segRows++
		tr.rowStart = next
		tr.advance()
		tr.dispatch(next, chans)
	}
	return tr.mix(t, chans)
}

// Halt stops the cursor and releases every sounding channel at time at.
// It returns the longest release among them, so callers know how long the
// tail rings.
func (tr *Track) Halt(at float64, chans []Channel) float64 {
	tr.started = true
	tr.stopped = true
	var tail float64
	for i := range chans {
		c := &chans[i]
		if c.inst == nil || c.released || !c.state.Key.IsNote() {
			continue
		}
		c.release(at)
		if o := c.inst.Oscillator(); o != nil {
			tail = max(tail, o.Envelope().Release)
		}
	}
	return tail
}

func (tr *Track) advance() {
	if tr.jump != nil {
		tr.pos = *tr.jump
		tr.jump = nil
		return
	}
	tr.pos.Row++
	if tr.pos.Row < tr.rows {
		return
	}
	tr.pos.Row = 0
	tr.pos.Frame++
	if tr.pos.Frame >= tr.frames {
		tr.pos.Frame = 0
		tr.loops++
	}
}

// limit returns how many effect slots of channel ch in pattern p are read.
func (tr *Track) limit(ch int, p *song.Pattern) int {
	n := math.MaxInt
	if p.Effects > 0 {
		n = p.Effects
	}
	if l := tr.fxLimit[ch]; l > 0 && l < n {
		n = l
	}
	return n
}

func (tr *Track) dispatch(at float64, chans []Channel) {
	n := min(len(chans), tr.channels)
	for i := 0; i < n; i++ {
		c := &chans[i]
		if c.disabled {
			continue
		}
		p := tr.patterns[tr.order[i][tr.pos.Frame]]
		in := p.At(tr.pos.Row)
		limit := min(tr.limit(i, p), len(in.Effects))
		for _, e := range in.Effects[:limit] {
			if trackKind(KindOf(e)) {
				tr.applyEffect(e, at)
			}
		}
		c.apply(in, limit, at, tr)
	}
}

func (tr *Track) applyEffect(e song.Effect, at float64) {
	hi, lo := pair(e)
	_, _, z := xyz(e)
	switch k := KindOf(e); k {
	case KindSpeed:
		if v := float64(hi) + float64(lo)/1000; v > 0 {
			tr.speed = v
			tr.step = v * tr.tick
			tr.segStart, tr.segRows = at, 0
		}
	case KindBranch:
		if int(hi) < tr.frames && int(lo) < tr.rows {
			tr.jump = &Position{Frame: int(hi), Row: int(lo)}
		}
	case KindStop:
		tr.stopped = true
	case KindMasterVolume:
		tr.SetVolume(float64(uint32(e)&0xFFFFFF) / 1000)
	case KindMasterPanning:
		tr.panning = float64(z) / 255
		tr.master[slotPan] = nil
	default:
		tr.master.decode(channelKind(k), e, at, tr.tick, decodeState{volume: tr.volume})
	}
}

func (tr *Track) mix(t float64, chans []Channel) (float64, float64) {
	m := modulation{gain: 1, volume: tr.volume, pan: tr.panning, cut: -1}
	tr.master.apply(&m, t, tr.tick)

	var l, r float64
	n := min(len(chans), tr.channels)
	for i := 0; i < n; i++ {
		c := &chans[i]
		if c.disabled {
			continue
		}
		s, pan := c.sample(t, tr.tick, m.pitch)
		if s == 0 {
			continue
		}
		gl, gr := panGains(pan)
		l += s * gl
		r += s * gr
	}
	g := m.volume * m.gain
	gl, gr := panGains(clamp(m.pan, 0, 1))
	return l * g * gl, r * g * gr
}

// panGains is an equal-power pan law with unity gain at the centre.
func panGains(p float64) (float64, float64) {
	a := p * math.Pi / 2
	return math.Cos(a) * math.Sqrt2, math.Sin(a) * math.Sqrt2
}

// scanDuration walks the order matrix once, applying speed and stop codes
// in row order.
func (tr *Track) scanDuration() float64 {
	step := tr.initialSpeed * tr.tick
	var total float64
	for f := 0; f < tr.frames; f++ {
		for r := 0; r < tr.rows; r++ {
			stop := false
			for ch := 0; ch < tr.channels; ch++ {
				p := tr.patterns[tr.order[ch][f]]
				in := p.At(r)
				for _, e := range in.Effects[:min(tr.limit(ch, p), len(in.Effects))] {
					switch KindOf(e) {
					case KindSpeed:
						hi, lo := pair(e)
						if v := float64(hi) + float64(lo)/1000; v > 0 {
							step = v * tr.tick
						}
					case KindStop:
						stop = true
					}
				}
			}
			total += step
			if stop {
				return total
			}
		}
	}
	return total
}
