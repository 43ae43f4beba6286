package playback

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Event is posted by the engine to its collaborators.
type Event int

const (
	// EventStartPlayback instructs the output transport to begin its
	// transfer cycle over the engine's buffer window.
	EventStartPlayback Event = iota
	// EventStopPlayback instructs the output transport to end the transfer
	// cycle.
	EventStopPlayback
	// EventResetVolume instructs the control loop to restore full output
	// volume once streaming has ended.
	EventResetVolume
)

func (ev Event) String() string {
	switch ev {
	case EventStartPlayback:
		return "start-playback"
	case EventStopPlayback:
		return "stop-playback"
	case EventResetVolume:
		return "reset-volume"
	}
	return "unknown"
}

// Consumer is the outbound transport's view of its own transfer progress.
// Remaining is in native transfer units (NativeTransferBytes each) left in
// the current cycle over the buffer window; it is only meaningful while
// Active.
type Consumer interface {
	Active() bool
	Remaining() int
}

// ErrFormatTooLarge is returned when a format's buffer plus the packet
// margin would not fit the reserved arena. This is rejected at construction;
// it can never surface mid-stream.
var ErrFormatTooLarge = errors.New("playback: format exceeds reserved storage")

const mailboxDepth = 4

// Engine owns the playback state: the sample arena, both cursors, the fill
// level, the start/stop hysteresis and the feedback correction. All
// mutations go through its methods; producer and consumer contexts never
// touch the state directly.
type Engine struct {
	mu sync.Mutex

	format Format
	buf    *ring

	writeOffset int
	readOffset  int
	fillSize    int

	streamingEnabled bool
	playbackEnabled  bool

	feedback feedbackController
	consumer Consumer

	events   chan Event
	controls chan Event

	packets       uint64
	failures      uint64
	underruns     uint64
	droppedEvents uint64

	log *log.Entry
}

// New creates an engine for a fixed stream format. The consumer is attached
// separately, once the output transport exists.
func New(format Format) (*Engine, error) {
	if format.BufferSize+MaxPacketSize > StorageSize {
		return nil, ErrFormatTooLarge
	}
	return &Engine{
		format:   format,
		buf:      newRing(format.BufferSize),
		feedback: newFeedbackController(format),
		events:   make(chan Event, mailboxDepth),
		controls: make(chan Event, mailboxDepth),
		log:      log.WithField("component", "playback"),
	}, nil
}

// AttachConsumer wires the outbound transport whose progress defines the
// read offset.
func (e *Engine) AttachConsumer(c Consumer) {
	e.mu.Lock()
	e.consumer = c
	e.mu.Unlock()
}

// Format returns the immutable stream geometry.
func (e *Engine) Format() Format { return e.format }

// Window is the buffer region the output transport cycles over. The slice
// is a borrowed view of the engine's arena, never a copy.
func (e *Engine) Window() []byte { return e.buf.window() }

// Events is the outbound transport mailbox carrying start/stop playback
// events.
func (e *Engine) Events() <-chan Event { return e.events }

// Controls carries events for the top-level control loop, such as the
// volume reset after streaming ends.
func (e *Engine) Controls() <-chan Event { return e.controls }

// StartStreaming enables the pipeline and returns the region the first
// packet must be written into. Calling it while already streaming is a
// no-op beyond returning the current write region.
func (e *Engine) StartStreaming() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.streamingEnabled {
		e.resetLocked()
		e.streamingEnabled = true
		e.log.Info("streaming enabled")
	}
	return e.buf.writeRegion(e.writeOffset)
}

// StopStreaming disables the pipeline, stopping playback if it is running.
// Idempotent: a second call has no observable effect.
func (e *Engine) StopStreaming() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.streamingEnabled {
		return
	}
	e.streamingEnabled = false
	e.stopLocked("streaming disabled")
	e.postControl(EventResetVolume)
	e.log.Info("streaming disabled")
}

// Ingest is called once per received packet with the byte count actually
// delivered into the current write region. A size of zero signals a failed
// transfer and stops playback. The returned slice is the region the next
// packet must be written into; it is valid until the next engine call and
// is returned even when the packet was discarded, so the transport always
// re-arms.
func (e *Engine) Ingest(n int) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.streamingEnabled {
		// Disregard packets while streaming is disabled.
		return e.buf.writeRegion(e.writeOffset)
	}

	if n == 0 {
		e.failures++
		e.stopLocked("transfer failure")
		return e.buf.writeRegion(e.writeOffset)
	}
	if n > MaxPacketSize {
		// The transport must never deliver past the write region; treat it
		// like a failed transfer rather than corrupting the margin.
		e.failures++
		e.log.WithField("size", n).Error("oversized transfer")
		e.stopLocked("oversized transfer")
		return e.buf.writeRegion(e.writeOffset)
	}

	e.packets++

	if e.format.wideSamples() {
		swapHalfWords(e.buf.storage[e.writeOffset : e.writeOffset+n])
	}

	prevFill := e.fillSize
	e.writeOffset = e.buf.advance(e.writeOffset, n)
	e.refreshReadOffsetLocked()
	e.fillSize = fillDistance(e.writeOffset, e.readOffset, e.format.BufferSize)

	if e.playbackEnabled {
		if e.fillSize > prevFill+n {
			// The circular distance wrapped: the read cursor overtook the
			// write cursor before this packet landed.
			e.underruns++
			e.log.WithFields(log.Fields{
				"fill_size": e.fillSize,
				"packet":    n,
			}).Warn("buffer underrun")
			e.stopLocked("underrun")
			return e.buf.writeRegion(e.writeOffset)
		}
		e.feedback.observe(e.fillSize)
	}

	e.maybeStartLocked()
	return e.buf.writeRegion(e.writeOffset)
}

// FeedbackValue is the rate currently reported toward the source, in
// samples per delivery period, 10.14 fixed point.
func (e *Engine) FeedbackValue() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feedback.value()
}

// refreshReadOffsetLocked derives the read offset from the output
// transport's remaining transfer count. An inactive transfer is a valid
// state and pins the offset at zero.
func (e *Engine) refreshReadOffsetLocked() {
	if e.consumer == nil || !e.consumer.Active() {
		e.readOffset = 0
		return
	}

	samples := e.consumer.Remaining()
	if e.format.wideSamples() {
		// The transfer count is in native 16 bit units; two of them make one
		// wide sample.
		samples /= 2
	}
	e.readOffset = e.format.BufferSize - e.format.SampleBytes*samples
}

// maybeStartLocked starts playback once the target fill size is reached.
// This is the only transition into the playing state.
func (e *Engine) maybeStartLocked() {
	if e.playbackEnabled {
		return
	}
	if e.fillSize < e.format.TargetFillSize {
		return
	}

	e.playbackEnabled = true
	e.post(EventStartPlayback)
	e.log.WithField("fill_size", e.fillSize).Info("playback started")
}

// stopLocked stops playback and resets the session state. A no-op while
// playback is not running: cursors from a stopped session are reset on the
// next StartStreaming instead.
func (e *Engine) stopLocked(reason string) {
	if !e.playbackEnabled {
		return
	}

	e.resetLocked()
	e.post(EventStopPlayback)
	e.log.WithField("reason", reason).Info("playback stopped")
}

// resetLocked returns the session to its baseline: zeroed cursors, playback
// off, feedback off. The streaming flag is left alone.
func (e *Engine) resetLocked() {
	e.writeOffset = 0
	e.readOffset = 0
	e.fillSize = 0
	e.playbackEnabled = false
	e.feedback.reset()
}

// post enqueues without blocking; a full mailbox drops the event. The
// critical section must never wait on the consumer.
func (e *Engine) post(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.droppedEvents++
		e.log.WithField("event", ev).Warn("event mailbox full, dropped")
	}
}

func (e *Engine) postControl(ev Event) {
	select {
	case e.controls <- ev:
	default:
		e.droppedEvents++
		e.log.WithField("event", ev).Warn("control mailbox full, dropped")
	}
}

// Snapshot is a read-only view of the engine state for diagnostics.
type Snapshot struct {
	PacketSize     int
	BufferSize     int
	TargetFillSize int
	FillSize       int

	StreamingEnabled bool
	PlaybackEnabled  bool

	FeedbackState FeedbackState
	FeedbackValue uint32

	Packets       uint64
	Failures      uint64
	Underruns     uint64
	DroppedEvents uint64
}

// Snapshot samples the state under the engine lock. The reads are a handful
// of loads; diagnostics never perturb the ingest path.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		PacketSize:       e.format.PacketSize,
		BufferSize:       e.format.BufferSize,
		TargetFillSize:   e.format.TargetFillSize,
		FillSize:         e.fillSize,
		StreamingEnabled: e.streamingEnabled,
		PlaybackEnabled:  e.playbackEnabled,
		FeedbackState:    e.feedback.state,
		FeedbackValue:    e.feedback.value(),
		Packets:          e.packets,
		Failures:         e.failures,
		Underruns:        e.underruns,
		DroppedEvents:    e.droppedEvents,
	}
}
