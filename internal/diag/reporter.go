package diag

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"exp-rtp-audio-playback/internal/playback"
)

// Reporter logs the buffer fill level once per interval and pushes the same
// snapshot into the metrics.
type Reporter struct {
	eng      *playback.Engine
	metrics  *Metrics
	interval time.Duration
	log      *log.Entry

	lastPackets uint64
}

func NewReporter(eng *playback.Engine, metrics *Metrics, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &Reporter{
		eng:      eng,
		metrics:  metrics,
		interval: interval,
		log:      log.WithField("component", "diag"),
	}
}

func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s := r.eng.Snapshot()
		if r.metrics != nil {
			r.metrics.Observe(s)
		}

		if !s.StreamingEnabled {
			continue
		}
		r.log.WithFields(log.Fields{
			"fill":      s.FillSize,
			"buffer":    s.BufferSize,
			"playing":   s.PlaybackEnabled,
			"feedback":  s.FeedbackState.String(),
			"packets/s": s.Packets - r.lastPackets,
			"underruns": s.Underruns,
		}).Info("audio buffer fill level")
		r.lastPackets = s.Packets
	}
}
