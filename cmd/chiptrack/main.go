package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/cbegin/chiptrack-go"
	"github.com/cbegin/chiptrack-go/internal/songfile"
)

var logger = slog.Default()

func initLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func fatal(msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}

func main() {
	var (
		sampleRate = pflag.IntP("sample-rate", "r", 48000, "output sample rate")
		backend    = pflag.StringP("backend", "b", "ebiten", "audio backend: ebiten|oto")
		loop       = pflag.BoolP("loop", "l", false, "loop playback; use with --loops to count then stop")
		loops      = pflag.Int("loops", 3, "when --loop, stop after N loops (0 = loop forever)")
		volume     = pflag.Float64P("volume", "v", 1.0, "master volume scalar")
		wavPath    = pflag.StringP("wav", "o", "", "render to a WAV file instead of playing")
		pcm16      = pflag.Bool("pcm16", false, "write 16-bit PCM instead of float WAV")
		seconds    = pflag.Float64("seconds", 0, "render length; 0 renders one pass and the release tail")
		normalize  = pflag.Float64("normalize", 0, "scale a render so its peak is this level (0 = off)")
		mute       = pflag.IntSlice("mute", nil, "channels to mute, e.g. --mute 1,3")
		dump       = pflag.Bool("dump", false, "print the decoded song and exit")
		verbose    = pflag.Bool("verbose", false, "debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: chiptrack [flags] [song.yml]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	initLogger(*verbose)

	s, err := loadSong(pflag.Args())
	if err != nil {
		fatal("loading song", err)
	}
	if *dump {
		spew.Dump(s)
		return
	}

	if *wavPath != "" {
		if err := render(s, *wavPath, *sampleRate, *seconds, *normalize, *pcm16); err != nil {
			fatal("render", err)
		}
		return
	}

	pl, err := chiptrack.NewPlayer(*sampleRate,
		chiptrack.WithBackend(*backend),
		chiptrack.WithLoopPlayback(*loop),
		chiptrack.WithLogger(logger),
	)
	if err != nil {
		fatal("creating player", err)
	}
	pl.SetMasterVolume(*volume)
	for _, ch := range *mute {
		if err := pl.SetChannelEnabled(ch, false); err != nil {
			fatal("mute", err)
		}
	}
	events := pl.Watch()
	if err := pl.Play(s); err != nil {
		fatal("play", err)
	}

	var tick <-chan time.Time
	if term.IsTerminal(int(os.Stderr.Fd())) {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case chiptrack.EventPlaybackEnded:
				clearProgress(tick)
				logger.Info("playback completed")
				pl.Wait()
				return
			case chiptrack.EventLoopCompleted:
				clearProgress(tick)
				logger.Info("loop completed", "loop", ev.Loops)
				if *loop && *loops > 0 && ev.Loops >= *loops {
					if err := pl.Stop(); err != nil {
						logger.Warn("stop", "err", err)
					}
				}
			}
		case <-tick:
			printProgress(pl)
		}
	}
}

func loadSong(args []string) (*songfile.Song, error) {
	if len(args) == 0 {
		logger.Info("no song given, playing the demo")
		return demoSong()
	}
	return chiptrack.LoadSong(args[0])
}

func render(s *songfile.Song, path string, rate int, seconds, normalize float64, pcm16 bool) error {
	start := time.Now()
	samples, err := chiptrack.Render(s, rate, seconds)
	if err != nil {
		return err
	}
	lv := chiptrack.MeasureLevels(samples)
	logger.Debug("levels", "peakL", lv.PeakL, "peakR", lv.PeakR, "rmsL", lv.RMSL, "rmsR", lv.RMSR)
	if normalize > 0 {
		g := chiptrack.Normalize(samples, float32(normalize))
		logger.Info("normalized", "gain", g)
	} else if lv.Peak() > 1 {
		logger.Warn("render clips; try --normalize 1", "peak", lv.Peak())
	}
	var data []byte
	if pcm16 {
		data = chiptrack.EncodeWAVPCM16LE(samples, rate, 2)
	} else {
		data = chiptrack.EncodeWAVFloat32LE(samples, rate, 2)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.Info("wrote", "path", path, "seconds", float64(len(samples)/2)/float64(rate), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func printProgress(pl *chiptrack.Player) {
	pos, t, err := pl.SongPosition()
	if err != nil {
		return
	}
	mins := int(t) / 60
	fmt.Fprintf(os.Stderr, "\rframe %3d row %3d  %d:%04.1f ", pos.Frame, pos.Row, mins, t-float64(mins*60))
}

func clearProgress(tick <-chan time.Time) {
	if tick != nil {
		fmt.Fprint(os.Stderr, "\r"+strings.Repeat(" ", 32)+"\r")
	}
}
