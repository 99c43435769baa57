package main

import (
	"github.com/cbegin/chiptrack-go/internal/master"
	"github.com/cbegin/chiptrack-go/internal/pitch"
	"github.com/cbegin/chiptrack-go/internal/sequencer"
	"github.com/cbegin/chiptrack-go/internal/song"
	"github.com/cbegin/chiptrack-go/internal/songfile"
)

// demoSong is a short two-channel loop: an arpeggiated lead over a
// square bass.
func demoSong() (*songfile.Song, error) {
	b := song.NewBuilder(8, 2, 2, []int{2, 1})
	b.Patterns(3)

	b.Select(0, 0, 0, 0.8).
		Note(0, pitch.NewKey(pitch.A, 4), sequencer.Arpeggio(0, 3, 7), sequencer.Vibrato(30, 12)).
		Note(4, pitch.NewKey(pitch.F, 4), sequencer.Arpeggio(0, 4, 7)).
		Release(7)
	b.Select(0, 1, 0, 0.8).
		Note(0, pitch.NewKey(pitch.C, 5), sequencer.Portamento(200)).
		Note(2, pitch.NewKey(pitch.E, 5), sequencer.Portamento(200)).
		Effects(4, sequencer.VolumeSlide(0, 20)).
		Release(7)
	b.Select(1, 2, 1, 0.6).
		Note(0, pitch.NewKey(pitch.A, 2)).
		Note(2, pitch.NewKey(pitch.A, 2), sequencer.Retrigger(2, 2)).
		Note(4, pitch.NewKey(pitch.F, 2)).
		Note(6, pitch.NewKey(pitch.G, 2), sequencer.NoteDelay(1, 4))
	b.Order(0, 0, 0).Order(0, 1, 1)
	b.Order(1, 0, 2).Order(1, 1, 2)
	a, err := b.Build()
	if err != nil {
		return nil, err
	}

	vol := 0.7
	s := songfile.FromArrangement(60, 2, 3, []songfile.Instrument{
		{Name: "lead", Wave: "square", Duty: 0.25, ADSR: &songfile.Envelope{Attack: 0.005, Decay: 0.08, Sustain: 0.6, Release: 0.15}},
		{Name: "bass", Wave: "triangle", Volume: &vol, ADSR: &songfile.Envelope{Sustain: 1, Release: 0.05}},
	}, a)
	s.Title = "demo"
	s.Master = []master.Spec{
		{Type: "delay", Params: []float64{180, 0.3, 0.2, 0.2}},
		{Type: "comp"},
	}
	return s, nil
}
