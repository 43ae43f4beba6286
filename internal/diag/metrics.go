// Package diag exposes the engine's read-only state: Prometheus metrics and
// a periodic fill-level report. It only ever samples snapshots; it never
// reaches into the synchronization state.
package diag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"exp-rtp-audio-playback/internal/playback"
)

// Metrics holds the Prometheus collectors for the playback bridge.
type Metrics struct {
	fillBytes     prometheus.Gauge
	targetBytes   prometheus.Gauge
	bufferBytes   prometheus.Gauge
	packetBytes   prometheus.Gauge
	streaming     prometheus.Gauge
	playing       prometheus.Gauge
	feedbackState prometheus.Gauge
	feedbackValue prometheus.Gauge
	packets       prometheus.Gauge
	failures      prometheus.Gauge
	underruns     prometheus.Gauge
	droppedEvents prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audio_playback",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		fillBytes:     gauge("fill_bytes", "Bytes produced but not yet consumed"),
		targetBytes:   gauge("target_fill_bytes", "Fill level at which playback starts"),
		bufferBytes:   gauge("buffer_bytes", "Nominal circular buffer size"),
		packetBytes:   gauge("packet_bytes", "Nominal packet size"),
		streaming:     gauge("streaming_enabled", "1 while the inbound stream is active"),
		playing:       gauge("playback_enabled", "1 while the output transfer is running"),
		feedbackState: gauge("feedback_state", "Rate correction state: 0 off, 1 decrease, 2 increase"),
		feedbackValue: gauge("feedback_value", "Reported rate, samples per period in 10.14 fixed point"),
		packets:       gauge("packets_total", "Packets ingested"),
		failures:      gauge("transfer_failures_total", "Failed or oversized transfers"),
		underruns:     gauge("underruns_total", "Times the read cursor overtook the write cursor"),
		droppedEvents: gauge("dropped_events_total", "Events lost to a full mailbox"),
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Observe publishes one engine snapshot.
func (m *Metrics) Observe(s playback.Snapshot) {
	m.fillBytes.Set(float64(s.FillSize))
	m.targetBytes.Set(float64(s.TargetFillSize))
	m.bufferBytes.Set(float64(s.BufferSize))
	m.packetBytes.Set(float64(s.PacketSize))
	m.streaming.Set(boolGauge(s.StreamingEnabled))
	m.playing.Set(boolGauge(s.PlaybackEnabled))
	m.feedbackState.Set(float64(s.FeedbackState))
	m.feedbackValue.Set(float64(s.FeedbackValue))
	m.packets.Set(float64(s.Packets))
	m.failures.Set(float64(s.Failures))
	m.underruns.Set(float64(s.Underruns))
	m.droppedEvents.Set(float64(s.DroppedEvents))
}
