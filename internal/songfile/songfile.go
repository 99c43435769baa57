// Package songfile reads and writes songs as YAML documents.
package songfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/chiptrack-go/internal/instrument"
	"github.com/cbegin/chiptrack-go/internal/master"
	"github.com/cbegin/chiptrack-go/internal/osc"
	"github.com/cbegin/chiptrack-go/internal/sequencer"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// ErrSyntax is wrapped by every error caused by the document itself.
var ErrSyntax = errors.New("song file syntax error")

// Song is the document form of a track.
type Song struct {
	Title       string `yaml:",omitempty"`
	Clock       float64
	BaseTime    float64
	Speed       float64
	Rows        int `yaml:",omitempty"`
	Frames      int `yaml:",omitempty"`
	Instruments []Instrument
	Patterns    []Pattern
	Order       [][]int       `yaml:",flow"`
	Effects     []int         `yaml:",flow,omitempty"`
	Master      []master.Spec `yaml:",omitempty"`
}

type Instrument struct {
	Name   string `yaml:",omitempty"`
	Wave   string
	Duty   float64   `yaml:",omitempty"`
	Phase  float64   `yaml:",omitempty"`
	Volume *float64  `yaml:",omitempty"` // nil is full volume
	ADSR   *Envelope `yaml:"adsr,omitempty"`
}

type Envelope struct {
	Attack  float64 `yaml:",omitempty"`
	Decay   float64 `yaml:",omitempty"`
	Sustain float64
	Release float64 `yaml:",omitempty"`
	Curve   float64 `yaml:",omitempty"`
}

type Pattern struct {
	Effects int `yaml:",omitempty"`
	Rows    []Row
}

func Decode(data []byte) (*Song, error) {
	var s Song
	if err := yaml.Unmarshal(data, &s); err != nil {
		if errors.Is(err, ErrSyntax) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return &s, nil
}

func Load(r io.Reader) (*Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func LoadFile(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Encode writes s as YAML.
func Encode(w io.Writer, s *Song) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Marshal is Encode into a byte slice.
func Marshal(s *Song) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromArrangement wraps builder output in a document.
func FromArrangement(clock, basetime, speed float64, bank []Instrument, a *song.Arrangement) *Song {
	s := &Song{
		Clock:       clock,
		BaseTime:    basetime,
		Speed:       speed,
		Rows:        a.Rows,
		Frames:      a.Frames,
		Instruments: append([]Instrument(nil), bank...),
		Patterns:    make([]Pattern, len(a.Patterns)),
		Order:       make([][]int, len(a.Order)),
		Effects:     append([]int(nil), a.EffectsPerChannel...),
	}
	for i, p := range a.Patterns {
		rows := make([]Row, len(p.Instructions))
		for j, in := range p.Instructions {
			rows[j] = Row(in.Clone())
		}
		s.Patterns[i] = Pattern{Effects: p.Effects, Rows: rows}
	}
	for i, o := range a.Order {
		s.Order[i] = append([]int(nil), o...)
	}
	return s
}

// Bank builds the instrument bank.
func (s *Song) Bank() ([]*instrument.Instrument, error) {
	bank := make([]*instrument.Instrument, len(s.Instruments))
	for i, spec := range s.Instruments {
		kind, err := osc.ParseKind(spec.Wave)
		if err != nil {
			return nil, fmt.Errorf("%w: instrument %d: %v", ErrSyntax, i, err)
		}
		env := osc.DefaultADSR
		if e := spec.ADSR; e != nil {
			env = osc.ADSR{Attack: e.Attack, Decay: e.Decay, Sustain: e.Sustain, Release: e.Release, Curve: e.Curve}
		}
		o := osc.New(kind, env)
		if spec.Duty > 0 {
			o.SetDuty(spec.Duty)
		}
		o.SetPhase(spec.Phase)
		vol := 1.0
		if spec.Volume != nil {
			vol = *spec.Volume
		}
		bank[i] = instrument.Named(spec.Name, o, vol)
	}
	return bank, nil
}

// Config converts the document into a track configuration. Rows and
// frames default to the longest pattern and the order length; shorter
// patterns are padded with empty rows.
func (s *Song) Config() (sequencer.Config, error) {
	bank, err := s.Bank()
	if err != nil {
		return sequencer.Config{}, err
	}
	rows := s.Rows
	if rows == 0 {
		for _, p := range s.Patterns {
			rows = max(rows, len(p.Rows))
		}
	}
	frames := s.Frames
	if frames == 0 && len(s.Order) > 0 {
		frames = len(s.Order[0])
	}
	patterns := make([]*song.Pattern, len(s.Patterns))
	for i, p := range s.Patterns {
		sp := song.NewPattern(max(rows, len(p.Rows)), p.Effects)
		for j, r := range p.Rows {
			sp.Instructions[j] = r.Instruction()
		}
		patterns[i] = sp
	}
	return sequencer.Config{
		Clock:             s.Clock,
		BaseTime:          s.BaseTime,
		Speed:             s.Speed,
		Rows:              rows,
		Frames:            frames,
		Channels:          len(s.Order),
		Instruments:       bank,
		Patterns:          patterns,
		Order:             s.Order,
		EffectsPerChannel: s.Effects,
	}, nil
}

// Track builds a sequencer track from the document.
func (s *Song) Track() (*sequencer.Track, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	return sequencer.NewTrack(cfg)
}

// Chain builds the master chain, returning the names of unknown entries.
func (s *Song) Chain(sampleRate int) (*master.Chain, []string) {
	return master.Build(s.Master, sampleRate)
}
