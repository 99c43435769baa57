package pitch

import (
	"fmt"
	"math"
	"strings"
)

// Semitones within an octave, C = 0 through B = 11.
const (
	C uint8 = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
	PerOctave
)

const (
	// Release triggers the release phase without changing pitch.
	Release uint8 = 244
	// Continue leaves the current value untouched.
	Continue uint8 = 255

	referenceOctave = 4
	referenceFreq   = 440.0
	maxOctave       = 8
)

// Key is a piano key: a semitone and an octave, or one of the sentinels.
type Key struct {
	Note   uint8
	Octave uint8
}

// Empty is the key of a row that does not touch the note.
var Empty = Key{Note: Continue, Octave: Continue}

// Off is the key of a row that releases the sounding note.
var Off = Key{Note: Release, Octave: Release}

func NewKey(note, octave uint8) Key {
	return Key{Note: note, Octave: octave}
}

// IsNote reports whether k names a real semitone and octave.
func (k Key) IsNote() bool {
	return k.Note < PerOctave && k.Octave <= maxOctave
}

func (k Key) IsRelease() bool {
	return k.Note == Release
}

func (k Key) IsContinue() bool {
	return k.Note == Continue
}

var noteNames = [PerOctave]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

func (k Key) String() string {
	switch {
	case k.IsRelease():
		return "==="
	case k.IsNote():
		return fmt.Sprintf("%s%d", noteNames[k.Note], k.Octave)
	default:
		return "..."
	}
}

// ParseKey reads tracker notation: "C-4", "C#4", "Db4", "===" for release
// and "...", "---" or "" for continue.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "...", "---", "..", "-":
		return Empty, nil
	case "===", "off", "OFF", "^^^":
		return Off, nil
	}
	if len(s) < 2 {
		return Empty, fmt.Errorf("invalid key %q", s)
	}
	var note int
	switch s[0] {
	case 'C', 'c':
		note = int(C)
	case 'D', 'd':
		note = int(D)
	case 'E', 'e':
		note = int(E)
	case 'F', 'f':
		note = int(F)
	case 'G', 'g':
		note = int(G)
	case 'A', 'a':
		note = int(A)
	case 'B', 'b':
		note = int(B)
	default:
		return Empty, fmt.Errorf("invalid key %q: unknown note name", s)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		note++
		rest = rest[1:]
	case 'b':
		note--
		rest = rest[1:]
	case '-':
		rest = rest[1:]
	}
	if len(rest) != 1 || rest[0] < '0' || rest[0] > '0'+maxOctave {
		return Empty, fmt.Errorf("invalid key %q: octave must be 0-%d", s, maxOctave)
	}
	octave := int(rest[0] - '0')
	// Cb and B# cross the octave boundary.
	if note < 0 {
		note += int(PerOctave)
		octave--
	} else if note >= int(PerOctave) {
		note -= int(PerOctave)
		octave++
	}
	if octave < 0 || octave > maxOctave {
		return Empty, fmt.Errorf("invalid key %q: octave out of range", s)
	}
	return Key{Note: uint8(note), Octave: uint8(octave)}, nil
}

// Key2Pitch returns the distance in semitones from A4. Sentinel keys must be
// filtered by the caller.
func Key2Pitch(k Key) float64 {
	return float64(int(k.Octave)-referenceOctave)*float64(PerOctave) + float64(int(k.Note)-int(A))
}

// Pitch2Freq converts semitones relative to A4 to Hz.
func Pitch2Freq(p float64) float64 {
	return referenceFreq * math.Pow(2, p/float64(PerOctave))
}

func Key2Freq(k Key) float64 {
	return Pitch2Freq(Key2Pitch(k))
}
