// Package playback plays a capture stream through a local output device
// using miniaudio (malgo).
package playback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

const bytesPerSample = 2

// Config configures a Player.
type Config struct {
	SampleRate int
	Channels   int
	// Device is a playback device name; empty uses the system default.
	Device string
	// BufferMs bounds the audio queued ahead of the device. Older audio is
	// dropped when the capture outpaces playback.
	BufferMs int
}

// Player queues s16le PCM chunks and feeds them to a playback device.
type Player struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	log    *slog.Logger

	q *queue

	closeOnce sync.Once
}

// NewPlayer opens the playback device. Call Start to begin playing and
// Close to release the device.
func NewPlayer(cfg Config, log *slog.Logger) (*Player, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "playback")

	ctx, err := malgo.InitContext(backends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if cfg.Device != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			freeContext(ctx)
			return nil, fmt.Errorf("failed to list playback devices: %w", err)
		}
		info, ok := findDevice(infos, cfg.Device)
		if !ok {
			freeContext(ctx)
			return nil, fmt.Errorf("playback device %q not found", cfg.Device)
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	frameBytes := cfg.Channels * bytesPerSample
	maxBytes := cfg.SampleRate * frameBytes * cfg.BufferMs / 1000
	p := &Player{
		ctx: ctx,
		log: log,
		q:   newQueue(frameBytes, maxBytes),
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: p.fill,
	})
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("failed to open playback device: %w", err)
	}
	p.device = device

	return p, nil
}

// Start begins playback.
func (p *Player) Start() error {
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	p.log.Info("playback started")
	return nil
}

// Write queues a chunk of PCM. It never blocks on the device.
func (p *Player) Write(chunk []byte) (int, error) {
	if dropped := p.q.push(chunk); dropped > 0 {
		p.log.Debug("playback queue full, dropped audio", "bytes", dropped)
	}
	return len(chunk), nil
}

// Close stops playback and releases the device.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.device.Uninit()
		freeContext(p.ctx)
	})
	return nil
}

// fill is the device data callback. Missing audio is played as silence.
func (p *Player) fill(out, _ []byte, _ uint32) {
	n := p.q.pop(out)
	clear(out[n:])
}

func freeContext(ctx *malgo.AllocatedContext) {
	_ = ctx.Uninit()
	ctx.Free()
}

// queue is a bounded FIFO of PCM bytes. Overflow drops the oldest whole
// frames, so channel order survives.
type queue struct {
	mu         sync.Mutex
	buf        []byte
	frameBytes int
	maxBytes   int
}

func newQueue(frameBytes, maxBytes int) *queue {
	if frameBytes < 1 {
		frameBytes = 1
	}
	if maxBytes < frameBytes {
		maxBytes = frameBytes
	}
	return &queue{frameBytes: frameBytes, maxBytes: maxBytes}
}

// push appends chunk and returns how many bytes were dropped to make room.
func (q *queue) push(chunk []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buf = append(q.buf, chunk...)
	over := len(q.buf) - q.maxBytes
	if over <= 0 {
		return 0
	}
	// Round up to whole frames.
	if rem := over % q.frameBytes; rem != 0 {
		over += q.frameBytes - rem
	}
	if over > len(q.buf) {
		over = len(q.buf)
	}
	n := copy(q.buf, q.buf[over:])
	q.buf = q.buf[:n]
	return over
}

// pop moves up to len(out) bytes into out and returns the count.
func (q *queue) pop(out []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := copy(out, q.buf)
	rest := copy(q.buf, q.buf[n:])
	q.buf = q.buf[:rest]
	return n
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
