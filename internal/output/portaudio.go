package output

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	log "github.com/sirupsen/logrus"

	"exp-rtp-audio-playback/internal/playback"
)

// PortAudio plays the buffer window through PortAudio's default device with
// a callback that drains the window cycle.
type PortAudio struct {
	cycle    *cycle
	unitRate int

	// volume holds float64 bits; the callback must not contend on the
	// stream mutex, which is held across Stop while the callback drains.
	volume atomic.Uint64

	mu     sync.Mutex
	stream *portaudio.Stream

	log *log.Entry
}

func NewPortAudio(eng *playback.Engine) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize PortAudio: %w", err)
	}

	s := &PortAudio{
		cycle:    &cycle{window: eng.Window()},
		unitRate: unitRate(eng.Format()),
		log:      log.WithField("component", "output.portaudio"),
	}
	s.volume.Store(math.Float64bits(1.0))
	return s, nil
}

func (s *PortAudio) Active() bool   { return s.cycle.Active() }
func (s *PortAudio) Remaining() int { return s.cycle.Remaining() }

func (s *PortAudio) Run(ctx context.Context, events <-chan playback.Event) error {
	for {
		select {
		case <-ctx.Done():
			s.stop()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				s.stop()
				return nil
			}
			switch ev {
			case playback.EventStartPlayback:
				s.start()
			case playback.EventStopPlayback:
				s.stop()
			}
		}
	}
}

// fill is the PortAudio callback: it copies 16 bit units out of the window
// cycle at the hardware rate.
func (s *PortAudio) fill(out []int16) {
	vol := math.Float64frombits(s.volume.Load())

	if !s.cycle.active.Load() {
		for i := range out {
			out[i] = 0
		}
		return
	}

	window := s.cycle.window
	pos := int(s.cycle.pos.Load())
	for i := range out {
		unit := int16(uint16(window[pos]) | uint16(window[pos+1])<<8)
		out[i] = int16(float64(unit) * vol)
		pos = (pos + playback.NativeTransferBytes) % len(window)
	}
	s.cycle.pos.Store(int64(pos))
}

func (s *PortAudio) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return
	}

	framesPerBuffer := s.unitRate / 100 // 10ms
	stream, err := portaudio.OpenDefaultStream(0, playback.ChannelCount, float64(s.unitRate), framesPerBuffer, s.fill)
	if err != nil {
		s.log.WithError(err).Error("open stream")
		return
	}
	if err := stream.Start(); err != nil {
		s.log.WithError(err).Error("start stream")
		stream.Close()
		return
	}

	s.cycle.start()
	s.stream = stream
	s.log.Info("transfer started")
}

func (s *PortAudio) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return
	}
	s.cycle.stop()
	if err := s.stream.Stop(); err != nil {
		s.log.WithError(err).Warn("stop stream")
	}
	if err := s.stream.Close(); err != nil {
		s.log.WithError(err).Warn("close stream")
	}
	s.stream = nil
	s.log.Info("transfer stopped")
}

func (s *PortAudio) SetVolume(v float64) {
	s.volume.Store(math.Float64bits(v))
}

func (s *PortAudio) Close() error {
	s.stop()
	return portaudio.Terminate()
}
