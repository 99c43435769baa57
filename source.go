package chiptrack

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cbegin/chiptrack-go/internal/master"
	"github.com/cbegin/chiptrack-go/internal/sequencer"
)

// EventKind tells Watch receivers what happened.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

// PlaybackEvent carries playback events from Watch().
type PlaybackEvent struct {
	Kind  EventKind
	Loops int // loop passes completed; 0 when a song ends without looping
}

// trackSource drives a track at the output sample rate and implements
// audio.Source and audio.FinishingSource.
type trackSource struct {
	mu    sync.Mutex
	track *sequencer.Track
	chans []sequencer.Channel
	chain *master.Chain
	rate  float64
	loop  bool

	frame int64   // frames rendered since the last restart
	loops int     // loop passes completed
	endAt float64 // song time the tail has rung out; -1 while playing
	seen  int     // track.Loops() at the last check

	gain     atomic.Uint64 // float64 bits
	finished atomic.Bool
	tap      func([]float32)
	onEvent  func(PlaybackEvent)
}

func newTrackSource(tr *sequencer.Track, chain *master.Chain, sampleRate int, loop bool) *trackSource {
	s := &trackSource{
		track: tr,
		chans: sequencer.NewChannels(tr.Channels()),
		chain: chain,
		rate:  float64(sampleRate),
		loop:  loop,
		endAt: -1,
	}
	s.setGain(1)
	return s
}

func (s *trackSource) setGain(g float64) { s.gain.Store(math.Float64bits(g)) }
func (s *trackSource) loadGain() float64 { return math.Float64frombits(s.gain.Load()) }

func (s *trackSource) Finished() bool { return s.finished.Load() }

func (s *trackSource) Process(dst []float32) {
	s.mu.Lock()
	events := s.render(dst)
	s.mu.Unlock()

	s.chain.ProcessInterleaved(dst)
	if s.tap != nil {
		s.tap(dst)
	}
	if s.onEvent != nil {
		for _, ev := range events {
			s.onEvent(ev)
		}
	}
}

func (s *trackSource) render(dst []float32) []PlaybackEvent {
	var events []PlaybackEvent
	g := s.loadGain()
	for i := 0; i+1 < len(dst); i += 2 {
		if s.finished.Load() {
			dst[i], dst[i+1] = 0, 0
			continue
		}
		t := float64(s.frame) / s.rate
		s.frame++

		if s.endAt < 0 && !s.loop && t >= s.track.Duration() {
			s.halt(t)
		}
		if s.loop && s.track.Stopped() && t >= s.track.Duration() {
			s.restart()
			t = 0
			s.frame = 1
			s.loops++
			events = append(events, PlaybackEvent{Kind: EventLoopCompleted, Loops: s.loops})
		}

		l, r := s.track.Play(t, s.chans)
		if n := s.track.Loops(); n > s.seen {
			s.seen = n
			if s.loop {
				s.loops++
				events = append(events, PlaybackEvent{Kind: EventLoopCompleted, Loops: s.loops})
			} else if s.endAt < 0 {
				s.halt(t)
			}
		}
		dst[i], dst[i+1] = float32(l*g), float32(r*g)

		if s.endAt >= 0 && t >= s.endAt {
			s.finished.Store(true)
			events = append(events, PlaybackEvent{Kind: EventPlaybackEnded, Loops: s.loops})
		}
	}
	return events
}

func (s *trackSource) halt(t float64) {
	s.endAt = t + s.track.Halt(t, s.chans)
}

// restart rewinds to row 0. Muted channels stay muted.
func (s *trackSource) restart() {
	s.track.Reset()
	for i := range s.chans {
		s.chans[i].Reset()
	}
	s.seen = 0
	s.endAt = -1
}

func (s *trackSource) completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loops
}

func (s *trackSource) setChannelEnabled(i int, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.chans) {
		return false
	}
	if on {
		s.chans[i].Enable()
	} else {
		s.chans[i].Disable()
	}
	return true
}

// position is the sequencer cursor and the song time rendered so far.
func (s *trackSource) position() (sequencer.Position, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track.Position(), float64(s.frame) / s.rate
}
