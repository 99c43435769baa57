package audio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Output is a running connection between a Source and the sound device.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	// Position is what the listener hears now, behind what was rendered.
	Position() time.Duration
	Close() error
}

// Backend selects the device library.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
)

var ErrUnknownBackend = errors.New("unknown audio backend")

func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendEbiten, BackendOto:
		return b, nil
	case "":
		return BackendEbiten, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Opener creates an Output for a source. Players take one so tests can run
// without a sound device.
type Opener func(sampleRate int, src Source) (Output, error)

// Open starts an output on backend b. The device is shared per process
// and fixed to the first sample rate requested; only one backend may be
// used per process.
func Open(b Backend, sampleRate int, src Source) (Output, error) {
	switch b {
	case BackendEbiten, "":
		return newEbitenOutput(sampleRate, src)
	case BackendOto:
		return newOtoOutput(sampleRate, src)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(b))
}

// Opener returns Open bound to b.
func (b Backend) Opener() Opener {
	return func(sampleRate int, src Source) (Output, error) {
		return Open(b, sampleRate, src)
	}
}
