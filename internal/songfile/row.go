package songfile

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/chiptrack-go/internal/pitch"
	"github.com/cbegin/chiptrack-go/internal/sequencer"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// Row is one pattern row. In YAML it is either the shorthand string
//
//	KEY [INSTRUMENT] [VOLUME] [| effect; effect...]
//
// with ".." or "-" for unchanged fields, or a mapping with key,
// instrument, volume and effects.
type Row song.Instruction

func (r Row) Instruction() song.Instruction { return song.Instruction(r).Clone() }

// ParseRow reads the shorthand form.
func ParseRow(s string) (song.Instruction, error) {
	in := song.Empty()
	main, fx, _ := strings.Cut(s, "|")
	fields := strings.Fields(main)
	if len(fields) > 3 {
		return in, fmt.Errorf("row %q: too many fields", s)
	}
	if len(fields) > 0 {
		k, err := pitch.ParseKey(fields[0])
		if err != nil {
			return in, err
		}
		in.Key = k
	}
	if len(fields) > 1 && !unchanged(fields[1]) {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 || n >= song.Continue {
			return in, fmt.Errorf("row %q: bad instrument %q", s, fields[1])
		}
		in.Instrument = uint8(n)
	}
	if len(fields) > 2 && !unchanged(fields[2]) {
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || v < 0 {
			return in, fmt.Errorf("row %q: bad volume %q", s, fields[2])
		}
		in.Volume = v
	}
	for _, text := range strings.Split(fx, ";") {
		if strings.TrimSpace(text) == "" {
			continue
		}
		e, err := sequencer.ParseEffect(text)
		if err != nil {
			return in, err
		}
		in.Effects = append(in.Effects, e)
	}
	return in, nil
}

func unchanged(tok string) bool {
	return strings.Trim(tok, ".-") == ""
}

// FormatRow writes the shorthand form read by ParseRow.
func FormatRow(in song.Instruction) string {
	var b strings.Builder
	b.WriteString(in.Key.String())
	if in.HasInstrument() || in.HasVolume() {
		b.WriteByte(' ')
		if in.HasInstrument() {
			b.WriteString(strconv.Itoa(int(in.Instrument)))
		} else {
			b.WriteString("..")
		}
	}
	if in.HasVolume() {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(in.Volume, 'g', -1, 64))
	}
	for i, e := range in.Effects {
		if i == 0 {
			b.WriteString(" | ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(sequencer.Describe(e))
	}
	return b.String()
}

type rowFields struct {
	Key        string
	Instrument *int
	Volume     *float64
	Effects    []string
}

func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	switch {
	case node.Kind == yaml.ScalarNode:
		in, err := ParseRow(node.Value)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrSyntax, node.Line, err)
		}
		*r = Row(in)
		return nil
	case node.Kind == yaml.MappingNode:
		var f rowFields
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrSyntax, node.Line, err)
		}
		in, err := f.instruction()
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrSyntax, node.Line, err)
		}
		*r = Row(in)
		return nil
	}
	return fmt.Errorf("%w: line %d: row must be a string or a mapping", ErrSyntax, node.Line)
}

func (f rowFields) instruction() (song.Instruction, error) {
	in := song.Empty()
	k, err := pitch.ParseKey(f.Key)
	if err != nil {
		return in, err
	}
	in.Key = k
	if f.Instrument != nil {
		if *f.Instrument < 0 || *f.Instrument >= song.Continue {
			return in, fmt.Errorf("bad instrument %d", *f.Instrument)
		}
		in.Instrument = uint8(*f.Instrument)
	}
	if f.Volume != nil {
		if *f.Volume < 0 {
			return in, fmt.Errorf("bad volume %v", *f.Volume)
		}
		in.Volume = *f.Volume
	}
	for _, text := range f.Effects {
		e, err := sequencer.ParseEffect(text)
		if err != nil {
			return in, err
		}
		in.Effects = append(in.Effects, e)
	}
	return in, nil
}

func (r Row) MarshalYAML() (any, error) {
	return FormatRow(song.Instruction(r)), nil
}
