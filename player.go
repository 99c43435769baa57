package chiptrack

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	intaudio "github.com/cbegin/chiptrack-go/internal/audio"
	"github.com/cbegin/chiptrack-go/internal/master"
	"github.com/cbegin/chiptrack-go/internal/sequencer"
	"github.com/cbegin/chiptrack-go/internal/songfile"
)

var ErrNoPlayback = errors.New("no active playback")

type PlayerOption func(*playerConfig)

type playerConfig struct {
	backend      string
	open         intaudio.Opener
	loopPlayback bool
	sampleTap    func([]float32)
	logger       *slog.Logger
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		backend:      string(intaudio.BackendEbiten),
		loopPlayback: true,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBackend selects the audio library by name ("ebiten" or "oto").
func WithBackend(name string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = name
	}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

func WithLogger(l *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// withOpener replaces the sound device, for tests.
func withOpener(open intaudio.Opener) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.open = open
	}
}

// Player plays songs on the sound device. Only one song plays at a time;
// Play replaces the current one.
type Player struct {
	mu           sync.Mutex
	sampleRate   int
	open         intaudio.Opener
	out          intaudio.Output
	src          *trackSource
	volume       float64
	muted        map[int]bool
	loopPlayback bool
	sampleTap    func([]float32)
	log          *slog.Logger
	done         chan struct{}
	eventCh      chan PlaybackEvent
	eventChMu    sync.Mutex
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	backend, err := intaudio.ParseBackend(cfg.backend)
	if err != nil {
		return nil, err
	}
	open := cfg.open
	if open == nil {
		open = backend.Opener()
	}
	return &Player{
		sampleRate:   sampleRate,
		open:         open,
		volume:       1,
		muted:        make(map[int]bool),
		loopPlayback: cfg.loopPlayback,
		sampleTap:    cfg.sampleTap,
		log:          cfg.logger.With("component", "player"),
	}, nil
}

// LoadSong reads a YAML song file.
func LoadSong(path string) (*songfile.Song, error) {
	return songfile.LoadFile(path)
}

// ParseSong decodes a YAML song document.
func ParseSong(text string) (*songfile.Song, error) {
	return songfile.Decode([]byte(text))
}

// Play builds a track and master chain from s and starts it.
func (p *Player) Play(s *songfile.Song) error {
	tr, err := s.Track()
	if err != nil {
		return err
	}
	chain, skipped := s.Chain(p.sampleRate)
	for _, name := range skipped {
		p.log.Warn("unknown master effect ignored", "type", name)
	}
	p.log.Info("playing", "title", s.Title, "channels", tr.Channels(), "duration", tr.Duration())
	return p.PlayTrack(tr, chain)
}

// PlayTrack starts tr from row 0. The player owns tr until the next Play
// or Stop.
func (p *Player) PlayTrack(tr *sequencer.Track, chain *master.Chain) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	src := newTrackSource(tr, chain, p.sampleRate, p.loopPlayback)
	src.setGain(p.volume)
	src.tap = p.sampleTap
	for i := range src.chans {
		if p.muted[i] {
			src.chans[i].Disable()
		}
	}
	src.onEvent = func(ev PlaybackEvent) {
		if ev.Kind == EventLoopCompleted {
			p.log.Debug("loop completed", "loops", ev.Loops)
		}
		p.sendEvent(ev)
		if ev.Kind == EventPlaybackEnded {
			p.log.Info("playback ended")
			p.signalDone(src)
		}
	}

	out, err := p.open(p.sampleRate, src)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	if p.out != nil {
		if err := p.out.Close(); err != nil {
			p.log.Warn("closing previous output", "err", err)
		}
	}
	p.out = out
	p.src = src
	p.out.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full or closed; drop event
		}
	}
}

// signalDone releases Wait if src is still the current playback.
func (p *Player) signalDone(src *trackSource) {
	p.mu.Lock()
	if p.src != src {
		p.mu.Unlock()
		return
	}
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Play()
	}
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out != nil && p.out.IsPlaying()
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.out == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.out.Close()
	loops := p.src.completed()
	p.out = nil
	p.src = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded, Loops: loops})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. When loop playback is enabled,
// Wait blocks indefinitely (use Watch for loop-counting instead).
// Wait returns immediately if no playback is active or if it was stopped.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events:
//   - EventLoopCompleted: a pass through the song finished (when looping)
//   - EventPlaybackEnded: playback finished or was stopped
//
// The channel is buffered (cap 8); receive in a goroutine to avoid blocking.
// Only the most recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default. It scales the
// output after the song's own master volume.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	if p.src != nil {
		p.src.setGain(volume)
	}
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetChannelEnabled mutes or unmutes a channel of the current song. The
// setting carries over to later songs.
func (p *Player) SetChannelEnabled(ch int, enabled bool) error {
	if ch < 0 {
		return fmt.Errorf("channel %d out of range", ch)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled {
		delete(p.muted, ch)
	} else {
		p.muted[ch] = true
	}
	if p.src != nil && !p.src.setChannelEnabled(ch, enabled) {
		return fmt.Errorf("channel %d out of range", ch)
	}
	return nil
}

func (p *Player) ChannelEnabled(ch int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.muted[ch]
}

// Position returns what the listener hears now, as reported by the audio
// driver.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	out := p.out
	p.mu.Unlock()
	if out == nil {
		return 0
	}
	return out.Position()
}

// SongPosition returns the sequencer cursor and the song time rendered so
// far, which runs ahead of Position by the device buffer.
func (p *Player) SongPosition() (sequencer.Position, float64, error) {
	p.mu.Lock()
	src := p.src
	p.mu.Unlock()
	if src == nil {
		return sequencer.Position{}, 0, ErrNoPlayback
	}
	pos, t := src.position()
	return pos, t, nil
}
