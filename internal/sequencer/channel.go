package sequencer

import (
	"github.com/cbegin/chiptrack-go/internal/instrument"
	"github.com/cbegin/chiptrack-go/internal/pitch"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// Channel is the playback state of one track column. The zero value is an
// enabled, silent channel at full volume and centre pan.
type Channel struct {
	disabled bool
	ready    bool

	track   *Track
	state   song.Instruction
	program uint8 // bank index, song.Continue until one is selected
	inst    *instrument.Instrument

	volume float64
	pan    float64

	noteOn     float64 // row time of the last note-on
	onset      float64 // song time the note last (re)started
	released   bool
	releasedAt float64

	fx effectBank
}

// NewChannels returns n channels ready for Track.Play.
func NewChannels(n int) []Channel {
	chans := make([]Channel, n)
	for i := range chans {
		chans[i].Reset()
	}
	return chans
}

// Reset silences the channel and forgets its instrument and effects. The
// enabled flag survives.
func (c *Channel) Reset() {
	*c = Channel{
		disabled: c.disabled,
		ready:    true,
		state:    song.Empty(),
		program:  song.Continue,
		volume:   1,
		pan:      0.5,
	}
}

func (c *Channel) init() {
	if !c.ready {
		c.Reset()
	}
}

func (c *Channel) Enable()       { c.disabled = false }
func (c *Channel) Disable()      { c.disabled = true }
func (c *Channel) Enabled() bool { return !c.disabled }

// Track returns the track that last drove this channel, or nil.
func (c *Channel) Track() *Track { return c.track }

// Instruction returns a copy of the current row state: the last note
// played, instrument, volume and effects applied. A release row leaves
// the key in place; see Released.
func (c *Channel) Instruction() song.Instruction {
	if !c.ready {
		return song.Empty()
	}
	return c.state.Clone()
}

// Instrument returns the channel's working instrument, or nil.
func (c *Channel) Instrument() *instrument.Instrument { return c.inst }

func (c *Channel) Volume() float64 {
	if !c.ready {
		return 1
	}
	return c.volume
}

func (c *Channel) Panning() float64 {
	if !c.ready {
		return 0.5
	}
	return c.pan
}

// NoteOn returns the song time of the last note-on.
func (c *Channel) NoteOn() float64 { return c.noteOn }

// Released reports whether the current note has been released, and when.
func (c *Channel) Released() (bool, float64) { return c.released, c.releasedAt }

// apply dispatches one row read at song time at. Only the first n effects
// are considered; track-level codes are left to the track.
func (c *Channel) apply(in song.Instruction, n int, at float64, tr *Track) {
	c.init()
	c.track = tr

	var prev float64
	hadNote := c.inst != nil && c.state.Key.IsNote()
	if hadNote {
		prev = pitch.Key2Pitch(c.state.Key) + c.fx.glide(at, tr.tick)
	}

	if in.HasInstrument() && int(in.Instrument) < len(tr.instruments) {
		c.program = in.Instrument
		c.state.Instrument = in.Instrument
	}

	var glide float64
	switch {
	case in.Key.IsRelease():
		// The key keeps sounding through the release ramp.
		c.release(at)
	case in.Key.IsNote():
		c.state.Key = in.Key
		c.start(at, tr)
		c.fx = effectBank{}
		if hadNote {
			glide = prev - pitch.Key2Pitch(in.Key)
		}
	case in.HasInstrument() && c.state.Key.IsNote() && !c.released:
		// New instrument on the sounding key: restart the envelope, keep the effects.
		c.start(at, tr)
	}

	if in.HasVolume() {
		c.volume = in.Volume
		if s, ok := c.fx[slotVolume].(*volumeSlide); ok {
			s.start, s.base = at, in.Volume
		}
		c.state.Volume = in.Volume
	}

	effects := in.Effects[:min(n, len(in.Effects))]
	for _, e := range effects {
		k := KindOf(e)
		switch {
		case trackKind(k):
		case k == KindPanning:
			_, _, z := xyz(e)
			c.pan = float64(z) / 255
			c.fx[slotPan] = nil
		default:
			c.fx.decode(k, e, at, tr.tick, decodeState{volume: c.volume, glide: glide})
		}
	}
	c.state.Effects = append(c.state.Effects[:0:0], effects...)
}

// start begins a note at song time at with a fresh copy of the selected
// instrument.
func (c *Channel) start(at float64, tr *Track) {
	if c.program != song.Continue {
		c.inst = tr.instruments[c.program].Clone()
	}
	c.noteOn, c.onset = at, at
	c.released = false
}

func (c *Channel) release(at float64) {
	if c.released {
		return
	}
	c.released = true
	c.releasedAt = at
	if c.inst != nil {
		c.inst.Release(at - c.onset)
	}
}

// sample returns the channel output at song time t and its pan position.
// bend is the master pitch offset in semitones.
func (c *Channel) sample(t, tick, bend float64) (float64, float64) {
	if c.inst == nil || !c.state.Key.IsNote() {
		return 0, c.pan
	}
	m := modulation{gain: 1, volume: c.volume, pan: c.pan, onset: c.noteOn, cut: -1}
	c.fx.apply(&m, t, tick)

	if m.onset > c.onset {
		c.onset = m.onset
		c.released = false
		if o := c.inst.Oscillator(); o != nil {
			o.Reset()
		}
	}
	if t < c.onset {
		return 0, clamp(m.pan, 0, 1)
	}
	if m.cut >= 0 && t >= m.cut {
		c.release(m.cut)
	}
	p := pitch.Key2Pitch(c.state.Key) + m.pitch + bend
	return c.inst.PlayPitch(m.volume*m.gain, p, t-c.onset), clamp(m.pan, 0, 1)
}
