package sequencer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cbegin/chiptrack-go/internal/lfo"
	"github.com/cbegin/chiptrack-go/internal/song"
)

// Kind is the top byte of an effect code.
//
// Parameter views of the low 24 bits:
//
//	X = bits 16-23, Y = bits 8-15, Z = bits 0-7
//	xxx = bits 12-23, yyy = bits 0-11
type Kind uint8

const (
	KindNone             Kind = 0x00
	KindVolumeSlide      Kind = 0x01 // xxx up, yyy down: hundredths of volume per second
	KindPitchSlide       Kind = 0x02 // X limit (semitones, 0=96), Y up, Z down: tenths of semitone per second
	KindPortamento       Kind = 0x03 // low 16 bits: hundredths of semitone per tick
	KindTremolo          Kind = 0x04 // X speed (tenths of Hz), Y depth (/255), Z waveform
	KindVibrato          Kind = 0x05 // X speed (tenths of Hz), Y depth (hundredths of semitone), Z waveform
	KindPanning          Kind = 0x06 // Z position (/255)
	KindPanSlide         Kind = 0x07 // X from, Y to (/255), Z duration in ticks
	KindArpeggio         Kind = 0x08 // six semitone nibbles, high nibble first
	KindSpeed            Kind = 0x09 // xxx + yyy/1000 ticks per row
	KindBranch           Kind = 0x0A // xxx frame, yyy row
	KindStop             Kind = 0x0B
	KindMasterVolume     Kind = 0x0C // 24 bits: thousandths
	KindNoteDelay        Kind = 0x0D // X delay ticks, Y cut ticks (0 = none)
	KindRetrigger        Kind = 0x0E // X interval ticks, Y count (0 = unlimited)
	KindTranspose        Kind = 0x0F // X interval ticks, Y signed semitones, Z count (0 = once)
	KindMasterVolSlide   Kind = 0x10
	KindMasterPitchSlide Kind = 0x11
	KindMasterPanning    Kind = 0x12
	KindMasterPanSlide   Kind = 0x13
	KindMasterTremolo    Kind = 0x14
	KindMasterVibrato    Kind = 0x15
)

// KindOf returns the effect kind of code e.
func KindOf(e song.Effect) Kind { return Kind(uint32(e) >> 24) }

// trackKind reports whether the sequencer, not a channel, consumes k.
func trackKind(k Kind) bool {
	switch k {
	case KindSpeed, KindBranch, KindStop, KindMasterVolume,
		KindMasterVolSlide, KindMasterPitchSlide, KindMasterPanning,
		KindMasterPanSlide, KindMasterTremolo, KindMasterVibrato:
		return true
	}
	return false
}

func code(k Kind, params uint32) song.Effect {
	return song.Effect(uint32(k)<<24 | params&0xFFFFFF)
}

func xyz(e song.Effect) (x, y, z uint8) {
	return uint8(e >> 16), uint8(e >> 8), uint8(e)
}

func pair(e song.Effect) (hi, lo uint16) {
	return uint16(e>>12) & 0xFFF, uint16(e) & 0xFFF
}

func bytes3(k Kind, x, y, z int) song.Effect {
	return code(k, uint32(clampInt(x, 0, 255))<<16|uint32(clampInt(y, 0, 255))<<8|uint32(clampInt(z, 0, 255)))
}

func pair12(k Kind, hi, lo int) song.Effect {
	return code(k, uint32(clampInt(hi, 0, 0xFFF))<<12|uint32(clampInt(lo, 0, 0xFFF)))
}

func VolumeSlide(up, down int) song.Effect { return pair12(KindVolumeSlide, up, down) }

func PitchSlide(limit, up, down int) song.Effect {
	return bytes3(KindPitchSlide, limit, up, down)
}

func Portamento(rate int) song.Effect {
	return code(KindPortamento, uint32(clampInt(rate, 0, 0xFFFF)))
}

func Tremolo(speed, depth int) song.Effect { return bytes3(KindTremolo, speed, depth, lfo.WaveSine) }
func Vibrato(speed, depth int) song.Effect { return bytes3(KindVibrato, speed, depth, lfo.WaveSine) }
func Panning(pos int) song.Effect          { return bytes3(KindPanning, 0, 0, pos) }

// TremoloWave and VibratoWave pick the LFO shape: lfo.WaveSine,
// WaveTriangle, WaveSquare or WaveSaw.
func TremoloWave(speed, depth, wave int) song.Effect {
	return bytes3(KindTremolo, speed, depth, wave)
}

func VibratoWave(speed, depth, wave int) song.Effect {
	return bytes3(KindVibrato, speed, depth, wave)
}

func PanSlide(from, to, ticks int) song.Effect {
	return bytes3(KindPanSlide, from, to, ticks)
}

// Arpeggio packs up to six semitone offsets (0-15). Include 0 to hear the
// base note.
func Arpeggio(offsets ...int) song.Effect {
	var p uint32
	for i := 0; i < arpeggioSteps; i++ {
		p <<= 4
		if i < len(offsets) {
			p |= uint32(clampInt(offsets[i], 0, 15))
		}
	}
	return code(KindArpeggio, p)
}

func Speed(ticks float64) song.Effect {
	whole := math.Floor(ticks)
	frac := math.Round((ticks - whole) * 1000)
	if frac >= 1000 {
		whole++
		frac = 0
	}
	return pair12(KindSpeed, int(whole), int(frac))
}

func Branch(frame, row int) song.Effect { return pair12(KindBranch, frame, row) }
func Stop() song.Effect                 { return code(KindStop, 0) }

func MasterVolume(v float64) song.Effect {
	return code(KindMasterVolume, uint32(clampInt(int(math.Round(v*1000)), 0, 0xFFFFFF)))
}

func NoteDelay(delay, cut int) song.Effect { return bytes3(KindNoteDelay, delay, cut, 0) }

func Retrigger(interval, count int) song.Effect {
	return bytes3(KindRetrigger, interval, count, 0)
}

func Transpose(interval, semitones, count int) song.Effect {
	s := clampInt(semitones, -128, 127)
	return bytes3(KindTranspose, interval, int(uint8(int8(s))), count)
}

func MasterVolumeSlide(up, down int) song.Effect { return pair12(KindMasterVolSlide, up, down) }

func MasterPitchSlide(limit, up, down int) song.Effect {
	return bytes3(KindMasterPitchSlide, limit, up, down)
}

func MasterPanning(pos int) song.Effect { return bytes3(KindMasterPanning, 0, 0, pos) }

func MasterPanSlide(from, to, ticks int) song.Effect {
	return bytes3(KindMasterPanSlide, from, to, ticks)
}

func MasterTremolo(speed, depth int) song.Effect { return bytes3(KindMasterTremolo, speed, depth, 0) }
func MasterVibrato(speed, depth int) song.Effect { return bytes3(KindMasterVibrato, speed, depth, 0) }

type mnemonic struct {
	name  string
	kind  Kind
	nargs int
}

var mnemonics = []mnemonic{
	{"vslide", KindVolumeSlide, 2},
	{"pslide", KindPitchSlide, 3},
	{"porta", KindPortamento, 1},
	{"trem", KindTremolo, 2},
	{"vib", KindVibrato, 2},
	{"pan", KindPanning, 1},
	{"panslide", KindPanSlide, 3},
	{"arp", KindArpeggio, -1},
	{"speed", KindSpeed, 1},
	{"jump", KindBranch, 2},
	{"stop", KindStop, 0},
	{"mvol", KindMasterVolume, 1},
	{"delay", KindNoteDelay, 2},
	{"retrig", KindRetrigger, 2},
	{"transpose", KindTranspose, 3},
	{"mvslide", KindMasterVolSlide, 2},
	{"mpslide", KindMasterPitchSlide, 3},
	{"mpan", KindMasterPanning, 1},
	{"mpanslide", KindMasterPanSlide, 3},
	{"mtrem", KindMasterTremolo, 2},
	{"mvib", KindMasterVibrato, 2},
}

func lookupName(name string) (mnemonic, bool) {
	for _, m := range mnemonics {
		if m.name == name {
			return m, true
		}
	}
	switch name {
	case "branch":
		return lookupName("jump")
	case "vibrato":
		return lookupName("vib")
	case "tremolo":
		return lookupName("trem")
	case "arpeggio":
		return lookupName("arp")
	}
	return mnemonic{}, false
}

// ParseEffect reads an effect mnemonic such as "vib 40 20", "arp 0 4 7",
// "speed 6" or "jump 0 2", or a raw code written as hex ("0x05281400").
func ParseEffect(s string) (song.Effect, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty effect")
	}
	if strings.HasPrefix(fields[0], "0x") && len(fields) == 1 {
		v, err := strconv.ParseUint(fields[0][2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("effect %q: %w", s, err)
		}
		return song.Effect(v), nil
	}
	m, ok := lookupName(fields[0])
	if !ok {
		return 0, fmt.Errorf("unknown effect %q", fields[0])
	}
	args := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, fmt.Errorf("effect %q: bad argument %q", s, f)
		}
		args = append(args, v)
	}
	// LFO effects take the waveform as an optional last argument.
	wave := lfo.WaveSine
	if lfoKind(m.kind) && len(args) == m.nargs+1 {
		wave = int(math.Round(args[m.nargs]))
		args = args[:m.nargs]
	}
	if m.nargs >= 0 && len(args) != m.nargs {
		return 0, fmt.Errorf("effect %q: %s takes %d arguments, got %d", s, m.name, m.nargs, len(args))
	}
	if m.kind == KindArpeggio && (len(args) == 0 || len(args) > arpeggioSteps) {
		return 0, fmt.Errorf("effect %q: arp takes 1 to %d offsets", s, arpeggioSteps)
	}
	a := func(i int) int { return int(math.Round(args[i])) }
	switch m.kind {
	case KindVolumeSlide:
		return VolumeSlide(a(0), a(1)), nil
	case KindPitchSlide:
		return PitchSlide(a(0), a(1), a(2)), nil
	case KindPortamento:
		return Portamento(a(0)), nil
	case KindTremolo:
		return TremoloWave(a(0), a(1), wave), nil
	case KindVibrato:
		return VibratoWave(a(0), a(1), wave), nil
	case KindPanning:
		return Panning(a(0)), nil
	case KindPanSlide:
		return PanSlide(a(0), a(1), a(2)), nil
	case KindArpeggio:
		offs := make([]int, len(args))
		for i := range args {
			offs[i] = a(i)
		}
		return Arpeggio(offs...), nil
	case KindSpeed:
		return Speed(args[0]), nil
	case KindBranch:
		return Branch(a(0), a(1)), nil
	case KindStop:
		return Stop(), nil
	case KindMasterVolume:
		return MasterVolume(args[0]), nil
	case KindNoteDelay:
		return NoteDelay(a(0), a(1)), nil
	case KindRetrigger:
		return Retrigger(a(0), a(1)), nil
	case KindTranspose:
		return Transpose(a(0), a(1), a(2)), nil
	case KindMasterVolSlide:
		return MasterVolumeSlide(a(0), a(1)), nil
	case KindMasterPitchSlide:
		return MasterPitchSlide(a(0), a(1), a(2)), nil
	case KindMasterPanning:
		return MasterPanning(a(0)), nil
	case KindMasterPanSlide:
		return MasterPanSlide(a(0), a(1), a(2)), nil
	case KindMasterTremolo, KindMasterVibrato:
		return bytes3(m.kind, a(0), a(1), wave), nil
	}
	return 0, fmt.Errorf("unknown effect %q", s)
}

// Describe renders e in the form ParseEffect reads. Unknown kinds come
// back as hex.
func Describe(e song.Effect) string {
	k := KindOf(e)
	name := ""
	for _, m := range mnemonics {
		if m.kind == k {
			name = m.name
			break
		}
	}
	if name == "" {
		return fmt.Sprintf("0x%08X", uint32(e))
	}
	x, y, z := xyz(e)
	hi, lo := pair(e)
	switch k {
	case KindVolumeSlide, KindMasterVolSlide, KindBranch:
		return fmt.Sprintf("%s %d %d", name, hi, lo)
	case KindPitchSlide, KindMasterPitchSlide, KindPanSlide, KindMasterPanSlide:
		return fmt.Sprintf("%s %d %d %d", name, x, y, z)
	case KindPortamento:
		return fmt.Sprintf("%s %d", name, uint32(e)&0xFFFF)
	case KindTremolo, KindVibrato, KindMasterTremolo, KindMasterVibrato:
		if z != lfo.WaveSine {
			return fmt.Sprintf("%s %d %d %d", name, x, y, z)
		}
		return fmt.Sprintf("%s %d %d", name, x, y)
	case KindNoteDelay, KindRetrigger:
		return fmt.Sprintf("%s %d %d", name, x, y)
	case KindPanning, KindMasterPanning:
		return fmt.Sprintf("%s %d", name, z)
	case KindArpeggio:
		steps := arpeggioOffsets(e)
		parts := make([]string, len(steps))
		for i, s := range steps {
			parts[i] = strconv.Itoa(int(s))
		}
		return name + " " + strings.Join(parts, " ")
	case KindSpeed:
		return fmt.Sprintf("%s %s", name, strconv.FormatFloat(float64(hi)+float64(lo)/1000, 'f', -1, 64))
	case KindStop:
		return name
	case KindMasterVolume:
		return fmt.Sprintf("%s %s", name, strconv.FormatFloat(float64(uint32(e)&0xFFFFFF)/1000, 'f', -1, 64))
	case KindTranspose:
		return fmt.Sprintf("%s %d %d %d", name, x, int8(y), z)
	}
	return fmt.Sprintf("0x%08X", uint32(e))
}

func lfoKind(k Kind) bool {
	switch k {
	case KindTremolo, KindVibrato, KindMasterTremolo, KindMasterVibrato:
		return true
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
