package chiptrack

import (
	"encoding/binary"
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/chiptrack-go/internal/master"
	"github.com/cbegin/chiptrack-go/internal/sequencer"
	"github.com/cbegin/chiptrack-go/internal/songfile"
)

// maxRenderSeconds bounds a one-pass render of a song that never reaches
// its end, for example one that branches backwards forever.
const maxRenderSeconds = 600

// Render renders s as interleaved stereo through its master chain. With
// seconds > 0 exactly that much is rendered, looping as the song does;
// otherwise one pass is rendered followed by the release tail.
func Render(s *songfile.Song, sampleRate int, seconds float64) ([]float32, error) {
	tr, err := s.Track()
	if err != nil {
		return nil, err
	}
	chain, _ := s.Chain(sampleRate)
	if seconds > 0 {
		return RenderTrack(tr, sequencer.NewChannels(tr.Channels()), chain, sampleRate, seconds), nil
	}
	return RenderPass(tr, chain, sampleRate), nil
}

// RenderTrack samples tr at i/sampleRate for every frame i of the given
// length.
func RenderTrack(tr *sequencer.Track, chans []sequencer.Channel, chain *master.Chain, sampleRate int, seconds float64) []float32 {
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	rate := float64(sampleRate)
	for i := 0; i < frames; i++ {
		l, r := tr.Play(float64(i)/rate, chans)
		out[2*i], out[2*i+1] = float32(l), float32(r)
	}
	chain.ProcessInterleaved(out)
	return out
}

// RenderPass renders one pass of tr and its release tail, the same audio
// a non-looping Player produces.
func RenderPass(tr *sequencer.Track, chain *master.Chain, sampleRate int) []float32 {
	src := newTrackSource(tr, chain, sampleRate, false)
	block := make([]float32, 2*1024)
	var out []float32
	limit := 2 * sampleRate * maxRenderSeconds
	for !src.Finished() && len(out) < limit {
		src.Process(block)
		out = append(out, block...)
	}
	return out[:2*src.frame]
}

// Levels are per-channel statistics of a rendered buffer.
type Levels struct {
	PeakL, PeakR float32
	RMSL, RMSR   float32
}

// Peak is the louder of the two channel peaks.
func (lv Levels) Peak() float32 { return max(lv.PeakL, lv.PeakR) }

// MeasureLevels returns absolute peak and RMS of interleaved stereo
// samples.
func MeasureLevels(samples []float32) Levels {
	n := len(samples) / 2
	if n == 0 {
		return Levels{}
	}
	l := make([]float32, n)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		l[i], r[i] = samples[2*i], samples[2*i+1]
	}
	sq := make([]float32, n)
	var lv Levels
	lv.RMSL = float32(math.Sqrt(float64(vek32.Mean(vek32.Mul_Into(sq, l, l)))))
	lv.RMSR = float32(math.Sqrt(float64(vek32.Mean(vek32.Mul_Into(sq, r, r)))))
	vek32.Abs_Inplace(l)
	vek32.Abs_Inplace(r)
	lv.PeakL = vek32.Max(l)
	lv.PeakR = vek32.Max(r)
	return lv
}

// Normalize scales samples in place so the absolute peak equals target and
// returns the gain applied. Silence is left alone.
func Normalize(samples []float32, target float32) float32 {
	peak := MeasureLevels(samples).Peak()
	if peak == 0 {
		return 1
	}
	g := target / peak
	vek32.MulNumber_Inplace(samples, g)
	return g
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	out := wavHeader(len(samples)*4, sampleRate, channels, 3, 32)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// EncodeWAVPCM16LE writes 16-bit integer PCM, clipping at full scale.
func EncodeWAVPCM16LE(samples []float32, sampleRate int, channels int) []byte {
	out := wavHeader(len(samples)*2, sampleRate, channels, 1, 16)
	for i, s := range samples {
		v := math.Round(float64(s) * math.MaxInt16)
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(int16(v)))
	}
	return out
}

// wavHeader allocates a RIFF file of dataSize bytes and fills in its
// 44-byte header.
func wavHeader(dataSize, sampleRate, channels, format, bits int) []byte {
	bytesPerSample := bits / 8
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], uint16(format))
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[34:], uint16(bits))
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	return out
}
