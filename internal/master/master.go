package master

import (
	"fmt"
	"strings"

	"github.com/cbegin/chiptrack-go/internal/lfo"
)

// Processor transforms one stereo frame of the mixed song.
type Processor interface {
	Process(l, r float64) (float64, float64)
	Reset()
}

// Chain runs processors in order. The zero value passes audio through.
type Chain struct {
	stages []Processor
}

func NewChain(stages ...Processor) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Add(p Processor) {
	c.stages = append(c.stages, p)
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

func (c *Chain) Process(l, r float64) (float64, float64) {
	if c == nil {
		return l, r
	}
	for _, p := range c.stages {
		l, r = p.Process(l, r)
	}
	return l, r
}

// ProcessInterleaved runs the chain in place over interleaved stereo
// frames.
func (c *Chain) ProcessInterleaved(buf []float32) {
	if c.Len() == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		l, r := c.Process(float64(buf[i]), float64(buf[i+1]))
		buf[i], buf[i+1] = float32(l), float32(r)
	}
}

func (c *Chain) Reset() {
	if c == nil {
		return
	}
	for _, p := range c.stages {
		p.Reset()
	}
}

// Spec names a processor and its positional parameters, as written in a
// song file. Missing parameters take defaults.
type Spec struct {
	Type   string    `yaml:"type"`
	Params []float64 `yaml:"params,omitempty,flow"`
}

// New builds the processor described by s.
func New(s Spec, sampleRate int) (Processor, error) {
	arg := func(i int, def float64) float64 {
		if i < len(s.Params) {
			return s.Params[i]
		}
		return def
	}
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case "delay":
		return NewDelay(sampleRate, arg(0, 250), arg(1, 0.4), arg(2, 0.2), arg(3, 0.3)), nil
	case "reverb":
		return NewReverb(sampleRate, arg(0, 0.5), arg(1, 0.7), arg(2, 0.25)), nil
	case "comp", "compressor":
		return NewCompressor(sampleRate, arg(0, -20), arg(1, 4), arg(2, 5), arg(3, 100), arg(4, 6)), nil
	case "drive", "dist", "distortion":
		return NewDrive(sampleRate, arg(0, 4), arg(1, 0.5), arg(2, 8000)), nil
	case "chorus":
		return NewChorus(sampleRate, arg(0, 15), arg(1, 0.3), arg(2, 3), arg(3, 1.5), arg(4, 0.4), int(arg(5, lfo.WaveSine))), nil
	case "eq":
		return NewEQ(sampleRate, arg(0, 1), arg(1, 1), arg(2, 1), arg(3, 300), arg(4, 3000)), nil
	}
	return nil, fmt.Errorf("unknown master processor %q", s.Type)
}

// Build assembles a chain from specs, skipping unknown types. The names of
// skipped entries are returned so callers can report them.
func Build(specs []Spec, sampleRate int) (*Chain, []string) {
	c := NewChain()
	var skipped []string
	for _, s := range specs {
		p, err := New(s, sampleRate)
		if err != nil {
			skipped = append(skipped, s.Type)
			continue
		}
		c.Add(p)
	}
	return c, skipped
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
