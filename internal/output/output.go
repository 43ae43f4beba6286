// Package output implements the outbound transport: playback backends that
// cycle over the engine's buffer window at the hardware rate and report
// their transfer progress back to the engine.
package output

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"exp-rtp-audio-playback/internal/playback"
)

// Sink is a playback backend. It satisfies the engine's Consumer contract
// and consumes the engine's start/stop mailbox.
type Sink interface {
	playback.Consumer
	Run(ctx context.Context, events <-chan playback.Event) error
	SetVolume(v float64)
	Close() error
}

// New selects a backend by name.
func New(name string, eng *playback.Engine) (Sink, error) {
	switch name {
	case "oto":
		return NewOto(eng)
	case "portaudio":
		return NewPortAudio(eng)
	default:
		return nil, fmt.Errorf("unknown output backend: %s", name)
	}
}

// cycle tracks one backend's position in its repeating pass over the buffer
// window. Position and active flag are read from the engine's ingest path
// and written from the audio callback, so both are atomics.
type cycle struct {
	window []byte
	pos    atomic.Int64
	active atomic.Bool
}

func (c *cycle) Active() bool { return c.active.Load() }

// Remaining reports the native 16 bit transfer units left in the current
// pass over the window.
func (c *cycle) Remaining() int {
	return (len(c.window) - int(c.pos.Load())) / playback.NativeTransferBytes
}

func (c *cycle) start() {
	c.pos.Store(0)
	c.active.Store(true)
}

func (c *cycle) stop() {
	c.active.Store(false)
	c.pos.Store(0)
}

// Read serves the window to a pulling player, wrapping at the window end.
func (c *cycle) Read(p []byte) (int, error) {
	if !c.active.Load() {
		return 0, io.EOF
	}
	pos := int(c.pos.Load())
	n := copy(p, c.window[pos:])
	c.pos.Store(int64((pos + n) % len(c.window)))
	return n, nil
}

// unitRate is the rate of native 16 bit units per channel. Wide samples
// leave the buffer as two pre-swapped halves, doubling the unit rate.
func unitRate(f playback.Format) int {
	return f.SampleRate * f.SampleBytes / playback.NativeTransferBytes
}
