package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"exp-rtp-audio-playback/internal/config"
	"exp-rtp-audio-playback/internal/diag"
	"exp-rtp-audio-playback/internal/output"
	"exp-rtp-audio-playback/internal/playback"
	"exp-rtp-audio-playback/internal/source"
)

// Source is an inbound transport feeding packets into the engine.
type Source interface {
	Run(ctx context.Context) error
	Close() error
}

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	cfgPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Logging)

	format, err := playback.FormatFor(cfg.Format.SampleRateHz, cfg.SampleBytes())
	if err != nil {
		return fmt.Errorf("stream format: %w", err)
	}
	engine, err := playback.New(format)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	log.WithFields(log.Fields{
		"sample_rate": format.SampleRate,
		"sample_size": format.SampleBytes,
		"packet":      format.PacketSize,
		"buffer":      format.BufferSize,
		"target_fill": format.TargetFillSize,
	}).Info("stream format")

	sink, err := output.New(cfg.Output.Backend, engine)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer sink.Close()
	engine.AttachConsumer(sink)

	src, err := newSource(cfg, engine)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	defer src.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sink.Run(ctx, engine.Events())
	go dispatchControls(ctx, engine, sink)

	registry := prometheus.NewRegistry()
	metrics := diag.NewMetrics(registry)
	go diag.NewReporter(engine, metrics, time.Second).Run(ctx)
	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics.Listen, registry)
	}

	return src.Run(ctx)
}

func newSource(cfg *config.Config, engine *playback.Engine) (Source, error) {
	switch cfg.Source.Kind {
	case "rtp":
		return source.NewRTP(cfg.Source.Listen, cfg.Source.FeedbackEveryPackets, engine)
	case "wav":
		return source.NewWAV(cfg.Source.Path, engine)
	default:
		return nil, fmt.Errorf("unknown source kind: %s", cfg.Source.Kind)
	}
}

// dispatchControls handles the engine's control events. When streaming ends
// the output volume returns to maximum, so other audio through the same
// device is not stuck at the stream's last level.
func dispatchControls(ctx context.Context, engine *playback.Engine, sink output.Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-engine.Controls():
			if ev == playback.EventResetVolume {
				sink.SetVolume(1.0)
			}
		}
	}
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
