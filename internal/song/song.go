package song

import "github.com/cbegin/chiptrack-go/internal/pitch"

// Continue marks an instrument index or volume that the row leaves as is.
const Continue = 255

// Effect is a packed effect command. Its layout is owned by the sequencer;
// song data only stores it.
type Effect uint32

// Instruction is one row of one channel.
type Instruction struct {
	Instrument uint8
	Key        pitch.Key
	Volume     float64
	Effects    []Effect
}

// Empty returns a row that changes nothing.
func Empty() Instruction {
	return Instruction{Instrument: Continue, Key: pitch.Empty, Volume: Continue}
}

func NewInstruction(instrument uint8, key pitch.Key, volume float64, effects ...Effect) Instruction {
	return Instruction{Instrument: instrument, Key: key, Volume: volume, Effects: effects}
}

func (in Instruction) HasInstrument() bool { return in.Instrument != Continue }
func (in Instruction) HasVolume() bool     { return in.Volume != Continue }

// IsEmpty reports whether the row carries nothing at all.
func (in Instruction) IsEmpty() bool {
	return !in.HasInstrument() && in.Key.IsContinue() && !in.HasVolume() && len(in.Effects) == 0
}

// Clone deep-copies the effect list.
func (in Instruction) Clone() Instruction {
	if in.Effects != nil {
		in.Effects = append([]Effect(nil), in.Effects...)
	}
	return in
}

// Pattern is a block of rows for one channel. Effects caps how many effect
// slots of each instruction are read.
type Pattern struct {
	Instructions []Instruction
	Effects      int
}

// NewPattern returns a pattern of empty rows.
func NewPattern(rows, effects int) *Pattern {
	p := &Pattern{Instructions: make([]Instruction, rows), Effects: effects}
	for i := range p.Instructions {
		p.Instructions[i] = Empty()
	}
	return p
}

func (p *Pattern) Rows() int { return len(p.Instructions) }

// At returns the row, or an empty row when out of range.
func (p *Pattern) At(row int) Instruction {
	if row < 0 || row >= len(p.Instructions) {
		return Empty()
	}
	return p.Instructions[row]
}

// Clone deep-copies the pattern.
func (p *Pattern) Clone() *Pattern {
	c := &Pattern{Instructions: make([]Instruction, len(p.Instructions)), Effects: p.Effects}
	for i, in := range p.Instructions {
		c.Instructions[i] = in.Clone()
	}
	return c
}
