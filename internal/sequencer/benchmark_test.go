package sequencer

import (
	"testing"

	"github.com/cbegin/chiptrack-go/internal/instrument"
	"github.com/cbegin/chiptrack-go/internal/osc"
	"github.com/cbegin/chiptrack-go/internal/pitch"
	"github.com/cbegin/chiptrack-go/internal/song"
)

func BenchmarkTrackPlay(b *testing.B) {
	const rows = 16
	bld := song.NewBuilder(rows, 1, 4, []int{2, 2, 2, 2})
	bld.Patterns(4)
	for ch := 0; ch < 4; ch++ {
		bld.Select(ch, ch, uint8(ch%2), 0.5)
		for r := 0; r < rows; r += 2 {
			bld.Note(r, pitch.NewKey(uint8((r+ch*3)%12), 4), Vibrato(50, 20), Arpeggio(0, 4, 7))
		}
		bld.Order(ch, 0, ch)
	}
	a, err := bld.Build()
	if err != nil {
		b.Fatalf("build failed: %v", err)
	}
	bank := []*instrument.Instrument{
		instrument.New(osc.New(osc.Square, osc.DefaultADSR), 0.5),
		instrument.New(osc.New(osc.Triangle, osc.DefaultADSR), 0.5),
	}
	tr, err := NewTrack(ArrangementConfig(60, 2, 3, bank, a))
	if err != nil {
		b.Fatalf("track failed: %v", err)
	}
	chans := NewChannels(4)
	const rate = 48000.0

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Play(float64(i)/rate, chans)
	}
}
