// Package meter turns a raw s16le PCM stream into per-channel dB levels and
// renders them as terminal bars.
package meter

import (
	"encoding/binary"
	"math"
	"sync"
)

const bytesPerSample = 2

// Analyzer computes per-channel RMS levels over fixed windows of frames.
// Chunks may split frames or samples anywhere; the remainder is carried over
// to the next Write. It is safe to read Levels while another goroutine
// writes.
type Analyzer struct {
	channels     int
	windowFrames int
	windowBytes  int

	mu      sync.Mutex
	pending []byte
	levels  []float64
	windows int
}

// NewAnalyzer creates an Analyzer for interleaved audio with the given
// number of channels, reporting one level per windowFrames frames.
func NewAnalyzer(channels, windowFrames int) *Analyzer {
	if channels < 1 {
		channels = 1
	}
	if windowFrames < 1 {
		windowFrames = 1
	}

	levels := make([]float64, channels)
	for i := range levels {
		levels[i] = math.Inf(-1)
	}

	return &Analyzer{
		channels:     channels,
		windowFrames: windowFrames,
		windowBytes:  channels * windowFrames * bytesPerSample,
		levels:       levels,
	}
}

// Write feeds a chunk of PCM. It never fails.
func (a *Analyzer) Write(chunk []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = append(a.pending, chunk...)

	offset := 0
	for len(a.pending)-offset >= a.windowBytes {
		a.measure(a.pending[offset : offset+a.windowBytes])
		offset += a.windowBytes
	}
	if offset > 0 {
		n := copy(a.pending, a.pending[offset:])
		a.pending = a.pending[:n]
	}

	return len(chunk), nil
}

// measure updates the levels from one full window of frames.
func (a *Analyzer) measure(window []byte) {
	frameBytes := a.channels * bytesPerSample
	for ch := 0; ch < a.channels; ch++ {
		var sumOfSquares float64
		for frame := 0; frame < a.windowFrames; frame++ {
			i := frame*frameBytes + ch*bytesPerSample
			sample := float64(int16(binary.LittleEndian.Uint16(window[i:])))
			sumOfSquares += sample * sample
		}
		rms := math.Sqrt(sumOfSquares/float64(a.windowFrames)) / 32768
		a.levels[ch] = DB(rms)
	}
	a.windows++
}

// Levels returns the latest level per channel in dBFS. A channel that has
// only seen silence reads -Inf.
func (a *Analyzer) Levels() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	levels := make([]float64, len(a.levels))
	copy(levels, a.levels)
	return levels
}

// Windows returns how many full windows have been measured.
func (a *Analyzer) Windows() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.windows
}

// Pending returns the number of carried-over bytes not yet measured.
func (a *Analyzer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// DB converts a linear amplitude (1.0 = full scale) to decibels.
func DB(amplitude float64) float64 {
	return 20 * math.Log10(math.Abs(amplitude))
}
