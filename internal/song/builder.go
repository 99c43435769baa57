package song

import (
	"errors"
	"fmt"

	"github.com/cbegin/chiptrack-go/internal/pitch"
)

// Arrangement is the pattern data of a song, ready for a sequencer.
type Arrangement struct {
	Rows              int
	Frames            int
	Channels          int
	Patterns          []*Pattern
	Order             [][]int // [channel][frame] index into Patterns
	EffectsPerChannel []int
}

// Builder writes patterns row by row. Select picks the pattern being
// written together with the instrument and volume that Note rows use.
// Errors are collected and reported by Build.
type Builder struct {
	rows, frames, channels int
	effects                []int
	patterns               []*Pattern
	order                  [][]int

	cur        *Pattern
	instrument uint8
	volume     float64
	errs       []error
}

func NewBuilder(rows, frames, channels int, effectsPerChannel []int) *Builder {
	b := &Builder{
		rows:       rows,
		frames:     frames,
		channels:   channels,
		effects:    append([]int(nil), effectsPerChannel...),
		instrument: Continue,
		volume:     Continue,
	}
	for len(b.effects) < channels {
		b.effects = append(b.effects, 1)
	}
	b.order = make([][]int, channels)
	for i := range b.order {
		b.order[i] = make([]int, frames)
	}
	return b
}

// Patterns allocates n empty patterns, replacing any written so far.
func (b *Builder) Patterns(n int) *Builder {
	b.patterns = make([]*Pattern, n)
	for i := range b.patterns {
		b.patterns[i] = NewPattern(b.rows, 1)
	}
	b.cur = nil
	return b
}

// Select starts writing pattern for channel, with instrument and volume used
// by the following Note rows.
func (b *Builder) Select(channel, pattern int, instrument uint8, volume float64) *Builder {
	if pattern < 0 || pattern >= len(b.patterns) {
		b.fail("select: pattern %d out of range (have %d)", pattern, len(b.patterns))
		b.cur = nil
		return b
	}
	if channel < 0 || channel >= b.channels {
		b.fail("select: channel %d out of range (have %d)", channel, b.channels)
		b.cur = nil
		return b
	}
	b.cur = b.patterns[pattern]
	if b.effects[channel] > b.cur.Effects {
		b.cur.Effects = b.effects[channel]
	}
	b.instrument = instrument
	b.volume = volume
	return b
}

// Note writes key with the selected instrument and volume.
func (b *Builder) Note(row int, key pitch.Key, effects ...Effect) *Builder {
	return b.Set(row, NewInstruction(b.instrument, key, b.volume, effects...))
}

// Release writes a note-off row.
func (b *Builder) Release(row int, effects ...Effect) *Builder {
	return b.Set(row, Instruction{Instrument: Continue, Key: pitch.Off, Volume: Continue, Effects: effects})
}

// Volume writes a row that only changes the volume.
func (b *Builder) Volume(row int, volume float64, effects ...Effect) *Builder {
	return b.Set(row, Instruction{Instrument: Continue, Key: pitch.Empty, Volume: volume, Effects: effects})
}

// Effects writes a row that only carries effects.
func (b *Builder) Effects(row int, effects ...Effect) *Builder {
	return b.Set(row, Instruction{Instrument: Continue, Key: pitch.Empty, Volume: Continue, Effects: effects})
}

// Set writes a full instruction into the selected pattern.
func (b *Builder) Set(row int, in Instruction) *Builder {
	if b.cur == nil {
		b.fail("row %d: no pattern selected", row)
		return b
	}
	if row < 0 || row >= len(b.cur.Instructions) {
		b.fail("row %d out of range (rows %d)", row, len(b.cur.Instructions))
		return b
	}
	b.cur.Instructions[row] = in.Clone()
	return b
}

// Order places pattern at (channel, frame).
func (b *Builder) Order(channel, frame, pattern int) *Builder {
	if channel < 0 || channel >= b.channels || frame < 0 || frame >= b.frames {
		b.fail("order: (%d,%d) outside %dx%d", channel, frame, b.channels, b.frames)
		return b
	}
	b.order[channel][frame] = pattern
	return b
}

// Build returns the arrangement, or every error met while writing it.
func (b *Builder) Build() (*Arrangement, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	a := &Arrangement{
		Rows:              b.rows,
		Frames:            b.frames,
		Channels:          b.channels,
		Patterns:          make([]*Pattern, len(b.patterns)),
		Order:             make([][]int, len(b.order)),
		EffectsPerChannel: append([]int(nil), b.effects...),
	}
	for i, p := range b.patterns {
		a.Patterns[i] = p.Clone()
	}
	for i, o := range b.order {
		a.Order[i] = append([]int(nil), o...)
	}
	return a, nil
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}
