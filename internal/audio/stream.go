package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
)

// Source fills dst with interleaved stereo float32 frames.
type Source interface {
	Process(dst []float32)
}

// FinishingSource is a Source that can signal the end of the song. Once
// Finished reports true the stream ends with io.EOF.
type FinishingSource interface {
	Source
	Finished() bool
}

// StreamReader turns a Source into the little-endian float32 byte stream
// both backends consume.
type StreamReader struct {
	mu     sync.Mutex
	source Source
	buf    []float32
	frames atomic.Int64
}

func NewStreamReader(source Source) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	r.frames.Add(int64(frames))
	n := frames * bytesPerFrame
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

// Frames returns how many frames have been pulled so far.
func (r *StreamReader) Frames() int64 { return r.frames.Load() }

func (r *StreamReader) Close() error { return nil }

const bytesPerFrame = 8
