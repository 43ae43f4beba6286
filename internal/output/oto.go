package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	log "github.com/sirupsen/logrus"

	"exp-rtp-audio-playback/internal/playback"
)

// Oto plays the buffer window through the default audio device using an
// oto player that pulls from the window cycle.
type Oto struct {
	otoCtx *oto.Context
	cycle  *cycle

	mu     sync.Mutex
	player *oto.Player
	volume float64

	log *log.Entry
}

func NewOto(eng *playback.Engine) (*Oto, error) {
	f := eng.Format()

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   unitRate(f),
		ChannelCount: playback.ChannelCount,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   10 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create audio context: %w", err)
	}

	// Wait for the context to be ready
	<-ready

	return &Oto{
		otoCtx: otoCtx,
		cycle:  &cycle{window: eng.Window()},
		volume: 1.0,
		log:    log.WithField("component", "output.oto"),
	}, nil
}

func (s *Oto) Active() bool   { return s.cycle.Active() }
func (s *Oto) Remaining() int { return s.cycle.Remaining() }

// Run consumes the engine mailbox until the context ends or the mailbox
// closes.
func (s *Oto) Run(ctx context.Context, events <-chan playback.Event) error {
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

func (s *Oto) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		return
	}
	s.cycle.start()
	s.player = s.otoCtx.NewPlayer(s.cycle)
	s.player.SetVolume(s.volume)
	s.player.Play()
	s.log.Info("transfer started")
}

func (s *Oto) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return
	}
	s.cycle.stop()
	if err := s.player.Close(); err != nil {
		s.log.WithError(err).Warn("close player")
	}
	s.player = nil
	s.log.Info("transfer stopped")
}

func (s *Oto) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = v
	if s.player != nil {
		s.player.SetVolume(v)
	}
}

func (s *Oto) Close() error {
	s.stop()
	return nil
}
