package sequencer

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/chiptrack-go/internal/instrument"
	"github.com/cbegin/chiptrack-go/internal/osc"
	"github.com/cbegin/chiptrack-go/internal/pitch"
	"github.com/cbegin/chiptrack-go/internal/song"
)

func TestTrackTiming(t *testing.T) {
	tr, _ := single(t, 60, 2, 3, column(4))
	approx(t, "step", tr.Step(), 0.1, 1e-12)
	approx(t, "tick", tr.Tick(), 2.0/60, 1e-12)
	if tr.Rows() != 4 || tr.Frames() != 1 || tr.Channels() != 1 {
		t.Fatalf("dimensions %d/%d/%d", tr.Rows(), tr.Frames(), tr.Channels())
	}
	approx(t, "duration", tr.Duration(), 0.4, 1e-12)
}

func TestTrackPlaysRowsAtBoundaries(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4, note(c4), note(d4)), sineInstrument())

	l, r := tr.Play(0.05, chans)
	want := math.Sin(2 * math.Pi * pitch.Key2Freq(c4) * 0.05)
	approx(t, "left at 0.05", l, want, 1e-9)
	approx(t, "right at 0.05", r, want, 1e-9)
	if got := tr.Position(); got != (Position{0, 0}) {
		t.Fatalf("position at 0.05 = %+v", got)
	}

	l, _ = tr.Play(0.15, chans)
	want = math.Sin(2 * math.Pi * pitch.Key2Freq(d4) * (0.15 - tr.Step()))
	approx(t, "left at 0.15", l, want, 1e-9)
	if got := tr.Position(); got != (Position{0, 1}) {
		t.Fatalf("position at 0.15 = %+v", got)
	}
}

func TestTrackFirstCallDispatchesRowZero(t *testing.T) {
	tr, chans := single(t, 10, 1, 10, column(2, note(a4)))
	l, _ := tr.Play(0, chans)
	approx(t, "left", l, 440, 1e-9)
	if chans[0].NoteOn() != 0 {
		t.Fatalf("note on at %v", chans[0].NoteOn())
	}
}

func TestTrackIsGranularityIndependent(t *testing.T) {
	p := column(8,
		note(a4, Vibrato(35, 50), Arpeggio(0, 3, 7)),
		fxRow(VolumeSlide(0, 40)),
		note(a5, Portamento(150), Speed(4.5)),
		fxRow(Transpose(1, -2, 3), Tremolo(20, 100)),
		song.NewInstruction(song.Continue, pitch.Empty, 0.6),
		note(c4, PitchSlide(0, 25, 0)),
	)
	run := func(step float64, end float64) (*Track, []Channel, float64, float64) {
		tr, chans := single(t, 60, 2, 3, p)
		var l, r float64
		n := int(math.Round(end / step))
		for i := 1; i <= n; i++ {
			at := float64(i) * step
			if i == n {
				at = end
			}
			l, r = tr.Play(at, chans)
		}
		return tr, chans, l, r
	}

	for _, end := range []float64{0.1, 0.47, 1.0} {
		fine, _, fl, fr := run(end/10, end)
		coarse, _, cl, cr := run(end, end)
		if fine.Position() != coarse.Position() {
			t.Fatalf("end %v: position %+v vs %+v", end, fine.Position(), coarse.Position())
		}
		approx(t, "left", fl, cl, 1e-9)
		approx(t, "right", fr, cr, 1e-9)
	}

	fine, fc, _, _ := run(0.001, 1.0)
	coarse, cc, _, _ := run(1.0, 1.0)
	if fine.Position() != coarse.Position() || fine.Speed() != coarse.Speed() {
		t.Fatalf("sample-rate stepping diverged: %+v/%v vs %+v/%v",
			fine.Position(), fine.Speed(), coarse.Position(), coarse.Speed())
	}
	if fc[0].NoteOn() != cc[0].NoteOn() {
		t.Fatalf("note on %v vs %v", fc[0].NoteOn(), cc[0].NoteOn())
	}
}

func TestPatternReuseAcrossFrames(t *testing.T) {
	p := column(2, note(c4), note(d4))
	tr, err := NewTrack(Config{
		Clock: 60, BaseTime: 2, Speed: 3,
		Rows: 2, Frames: 2, Channels: 1,
		Instruments: []*instrument.Instrument{sineInstrument()},
		Patterns:    []*song.Pattern{p},
		Order:       [][]int{{0, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	chans := NewChannels(1)
	first, _ := tr.Play(0.05, chans)
	second, _ := tr.Play(0.05+2*tr.Step(), chans)
	if got := tr.Position(); got != (Position{1, 0}) {
		t.Fatalf("position = %+v", got)
	}
	approx(t, "replayed sample", second, first, 1e-9)
}

func TestEffectsAreIndependent(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4,
		note(a4, Vibrato(40, 30)),
		song.Empty(),
		song.Empty(),
		fxRow(Tremolo(20, 128)),
	))
	tr.Play(0.35, chans)
	v, ok := chans[0].fx[slotVibrato].(*vibrato)
	if !ok {
		t.Fatal("vibrato slot cleared by tremolo")
	}
	if v.start != 0 {
		t.Fatalf("vibrato anchor moved to %v", v.start)
	}
	tm, ok := chans[0].fx[slotTremolo].(*tremolo)
	if !ok {
		t.Fatal("tremolo not installed")
	}
	approx(t, "tremolo anchor", tm.start, 3*tr.Step(), 1e-12)
}

func TestDisabledChannelIsSilent(t *testing.T) {
	bank := []*instrument.Instrument{probeInstrument()}
	tr, err := NewTrack(Config{
		Clock: 10, BaseTime: 1, Speed: 10,
		Rows: 1, Frames: 1, Channels: 2,
		Instruments: bank,
		Patterns:    []*song.Pattern{column(1, note(a4)), column(1, note(a5))},
		Order:       [][]int{{0}, {1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	chans := NewChannels(2)
	chans[1].Disable()
	l, r := tr.Play(0.5, chans)
	approx(t, "left", l, 440, 1e-9)
	approx(t, "right", r, 440, 1e-9)
	if in := chans[1].Instruction(); !in.IsEmpty() {
		t.Fatalf("disabled channel received %+v", in)
	}
	if chans[1].Enabled() {
		t.Fatal("channel reports enabled")
	}

	chans[1].Enable()
	tr.Reset()
	chans[0].Reset()
	l, _ = tr.Play(0.5, chans)
	approx(t, "both channels", l, 440+880, 1e-9)
}

func TestBranch(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4, fxRow(Branch(0, 2))))
	tr.Play(0.05, chans)
	tr.Play(0.15, chans)
	if got := tr.Position(); got != (Position{0, 2}) {
		t.Fatalf("position after branch = %+v, want {0 2}", got)
	}
	tr.Play(0.25, chans)
	if got := tr.Position(); got != (Position{0, 3}) {
		t.Fatalf("position = %+v, want {0 3}", got)
	}
}

func TestBranchOutOfRangeIsIgnored(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4, fxRow(Branch(5, 0))))
	tr.Play(0.15, chans)
	if got := tr.Position(); got != (Position{0, 1}) {
		t.Fatalf("position = %+v", got)
	}
}

func TestStopFreezesCursorButKeepsSound(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4, note(a4), fxRow(Stop()), note(c4)))
	tr.Play(0.15, chans)
	l, _ := tr.Play(10, chans)
	if !tr.Stopped() {
		t.Fatal("track not stopped")
	}
	if got := tr.Position(); got != (Position{0, 1}) {
		t.Fatalf("position = %+v", got)
	}
	approx(t, "sustained note", l, 440, 1e-9)
	approx(t, "duration", tr.Duration(), 2*tr.Step(), 1e-12)
}

func TestHaltReleasesChannels(t *testing.T) {
	inst := instrument.New(osc.NewWithShape(probe{}, 0.5, 0, osc.ADSR{Sustain: 1, Release: 0.1}), 1)
	tr, chans := single(t, 60, 2, 3, column(4, note(a4), note(c4)), inst)
	tr.Play(0.05, chans)

	tail := tr.Halt(0.05, chans)
	approx(t, "tail", tail, 0.1, 1e-12)
	if released, at := chans[0].Released(); !released || at != 0.05 {
		t.Fatalf("released = %v at %v", released, at)
	}
	l, _ := tr.Play(0.1, chans)
	approx(t, "half way through release", l, 220, 1e-9)
	l, _ = tr.Play(0.2, chans)
	approx(t, "after release", l, 0, 1e-12)
	if !tr.Stopped() || tr.Position() != (Position{0, 0}) {
		t.Fatalf("stopped=%v position=%+v", tr.Stopped(), tr.Position())
	}
	if again := tr.Halt(0.3, chans); again != 0 {
		t.Fatalf("second halt tail = %v", again)
	}
}

func TestSpeedChange(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4, fxRow(Speed(6))))
	tr.Play(0.15, chans)
	if got := tr.Position(); got != (Position{0, 0}) {
		t.Fatalf("position at 0.15 = %+v, want row 0", got)
	}
	approx(t, "step", tr.Step(), 0.2, 1e-12)
	tr.Play(0.25, chans)
	if got := tr.Position(); got != (Position{0, 1}) {
		t.Fatalf("position at 0.25 = %+v, want row 1", got)
	}
	approx(t, "duration", tr.Duration(), 0.8, 1e-12)
}

func TestWrapCountsLoops(t *testing.T) {
	tr, chans := single(t, 10, 1, 1, column(2))
	tr.Play(0.25, chans)
	if tr.Loops() != 1 || tr.Position() != (Position{0, 0}) {
		t.Fatalf("loops %d at %+v", tr.Loops(), tr.Position())
	}
}

func TestEffectLimits(t *testing.T) {
	p := column(1, note(a4, Panning(0), Panning(255)))
	p.Effects = 1
	tr, chans := single(t, 10, 1, 10, p)
	l, r := tr.Play(0.5, chans)
	approx(t, "left", l, 440*math.Sqrt2, 1e-9)
	approx(t, "right", r, 0, 1e-9)
	if got := len(chans[0].Instruction().Effects); got != 1 {
		t.Fatalf("snapshot kept %d effects", got)
	}
}

func TestPerChannelEffectLimit(t *testing.T) {
	tr, err := NewTrack(Config{
		Clock: 10, BaseTime: 1, Speed: 10,
		Rows: 1, Frames: 1, Channels: 1,
		Instruments:       []*instrument.Instrument{probeInstrument()},
		Patterns:          []*song.Pattern{column(1, note(a4, Panning(0), MasterVolume(0.5)))},
		Order:             [][]int{{0}},
		EffectsPerChannel: []int{1},
	})
	if err != nil {
		t.Fatal(err)
	}
	chans := NewChannels(1)
	tr.Play(0.1, chans)
	if tr.Volume() != 1 {
		t.Fatalf("effect beyond the channel limit applied: volume %v", tr.Volume())
	}
}

func TestMasterVolumeAndPanning(t *testing.T) {
	tr, chans := single(t, 10, 1, 10, column(1, note(a4, MasterVolume(0.5), MasterPanning(0))))
	l, r := tr.Play(0.5, chans)
	approx(t, "left", l, 220*math.Sqrt2, 1e-9)
	approx(t, "right", r, 0, 1e-9)
	if tr.Volume() != 0.5 || tr.Panning() != 0 {
		t.Fatalf("master %v/%v", tr.Volume(), tr.Panning())
	}
}

func TestMasterEffects(t *testing.T) {
	tr, chans := single(t, 10, 1, 100, column(1, note(a4, MasterVolumeSlide(0, 50), MasterVibrato(10, 100))))
	l, _ := tr.Play(0.25, chans)
	// volume 1 - 0.5*0.25, pitch +1 semitone at the vibrato peak
	approx(t, "left", l, 0.875*semis(1), 1e-6)
}

func TestResetReplays(t *testing.T) {
	tr, chans := single(t, 60, 2, 3, column(4, note(c4, Vibrato(50, 40)), note(d4)), sineInstrument())
	first, _ := tr.Play(0.17, chans)
	tr.Play(3, chans)
	tr.Reset()
	chans[0].Reset()
	again, _ := tr.Play(0.17, chans)
	approx(t, "replay", again, first, 1e-12)
}

func TestZeroValueChannels(t *testing.T) {
	tr, _ := single(t, 10, 1, 10, column(1, note(a4)))
	chans := make([]Channel, 1)
	l, _ := tr.Play(0.5, chans)
	approx(t, "left", l, 440, 1e-9)
	if chans[0].Track() != tr {
		t.Fatal("channel does not point back at its track")
	}
}

func TestChannelCountMismatch(t *testing.T) {
	tr, _ := single(t, 10, 1, 10, column(1, note(a4)))
	l, _ := tr.Play(0.5, NewChannels(3))
	approx(t, "extra channels", l, 440, 1e-9)

	tr.Reset()
	l, r := tr.Play(0.5, nil)
	if l != 0 || r != 0 {
		t.Fatalf("no channels gave %v/%v", l, r)
	}
}

func TestTrackCopiesConfig(t *testing.T) {
	p := column(1, note(a4))
	cfg := Config{
		Clock: 10, BaseTime: 1, Speed: 10,
		Rows: 1, Frames: 1, Channels: 1,
		Instruments: []*instrument.Instrument{probeInstrument()},
		Patterns:    []*song.Pattern{p},
		Order:       [][]int{{0}},
	}
	tr, err := NewTrack(cfg)
	if err != nil {
		t.Fatal(err)
	}
	p.Instructions[0] = note(a5)
	cfg.Order[0][0] = 7
	l, _ := tr.Play(0.5, NewChannels(1))
	approx(t, "left", l, 440, 1e-9)
}

func TestNewTrackRejectsBadConfig(t *testing.T) {
	good := func() Config {
		return Config{
			Clock: 60, BaseTime: 2, Speed: 3,
			Rows: 2, Frames: 1, Channels: 1,
			Instruments: []*instrument.Instrument{probeInstrument()},
			Patterns:    []*song.Pattern{column(2, note(a4))},
			Order:       [][]int{{0}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero clock", func(c *Config) { c.Clock = 0 }},
		{"negative basetime", func(c *Config) { c.BaseTime = -1 }},
		{"zero speed", func(c *Config) { c.Speed = 0 }},
		{"NaN speed", func(c *Config) { c.Speed = math.NaN() }},
		{"zero rows", func(c *Config) { c.Rows = 0 }},
		{"zero frames", func(c *Config) { c.Frames = 0 }},
		{"zero channels", func(c *Config) { c.Channels = 0 }},
		{"short order", func(c *Config) { c.Order = nil }},
		{"short frames", func(c *Config) { c.Order = [][]int{{}} }},
		{"pattern out of range", func(c *Config) { c.Order = [][]int{{3}} }},
		{"nil pattern", func(c *Config) { c.Patterns = []*song.Pattern{nil} }},
		{"row count mismatch", func(c *Config) { c.Patterns = []*song.Pattern{column(3)} }},
		{"instrument out of bank", func(c *Config) {
			c.Patterns = []*song.Pattern{column(2, song.NewInstruction(4, a4, 1))}
		}},
		{"nil instrument", func(c *Config) { c.Instruments = []*instrument.Instrument{nil} }},
		{"effect limits", func(c *Config) { c.EffectsPerChannel = []int{1, 1} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := good()
			tc.mutate(&cfg)
			_, err := NewTrack(cfg)
			if !errors.Is(err, ErrInvalidTrack) {
				t.Fatalf("err = %v, want ErrInvalidTrack", err)
			}
		})
	}
	if _, err := NewTrack(good()); err != nil {
		t.Fatalf("good config rejected: %v", err)
	}
}

func TestArrangementConfig(t *testing.T) {
	b := song.NewBuilder(4, 1, 1, nil)
	b.Patterns(1)
	b.Select(0, 0, 0, 1).Note(0, a4).Effects(1, Speed(6))
	a, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	tr, err := NewTrack(ArrangementConfig(60, 2, 3, []*instrument.Instrument{probeInstrument()}, a))
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "duration", tr.Duration(), 0.1+3*0.2, 1e-12)
}
