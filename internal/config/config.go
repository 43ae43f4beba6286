// Package config loads and validates the bridge configuration. Format
// mistakes are rejected here, before the engine exists; nothing about the
// stream geometry can fail mid-stream.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Format  FormatConfig  `yaml:"format"`
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type FormatConfig struct {
	SampleRateHz int `yaml:"sample_rate_hz"`
	BitDepth     int `yaml:"bit_depth"`
}

type SourceConfig struct {
	// Kind selects the inbound transport: "rtp" or "wav".
	Kind string `yaml:"kind"`
	// Listen is the UDP address for the rtp source.
	Listen string `yaml:"listen"`
	// Path is the file for the wav source.
	Path string `yaml:"path"`
	// FeedbackEveryPackets is the upstream rate-report cadence of the rtp
	// source.
	FeedbackEveryPackets int `yaml:"feedback_every_packets"`
}

type OutputConfig struct {
	// Backend selects the playback backend: "oto" or "portaudio".
	Backend string `yaml:"backend"`
}

type MetricsConfig struct {
	// Listen is the address of the Prometheus endpoint; empty disables it.
	Listen string `yaml:"listen"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Format.SampleRateHz == 0 {
		c.Format.SampleRateHz = 48000
	}
	if c.Format.BitDepth == 0 {
		c.Format.BitDepth = 16
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "rtp"
	}
	if c.Source.Listen == "" {
		c.Source.Listen = ":5004"
	}
	if c.Source.FeedbackEveryPackets == 0 {
		c.Source.FeedbackEveryPackets = 8
	}
	if c.Output.Backend == "" {
		c.Output.Backend = "oto"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Format.SampleRateHz {
	case 48000, 96000:
	default:
		return fmt.Errorf("format: unsupported sample_rate_hz %d", c.Format.SampleRateHz)
	}

	switch c.Format.BitDepth {
	case 16, 32:
	default:
		return fmt.Errorf("format: unsupported bit_depth %d", c.Format.BitDepth)
	}

	switch c.Source.Kind {
	case "rtp":
	case "wav":
		if c.Source.Path == "" {
			return fmt.Errorf("source: wav source requires path")
		}
	default:
		return fmt.Errorf("source: unknown kind %q", c.Source.Kind)
	}

	switch c.Output.Backend {
	case "oto", "portaudio":
	default:
		return fmt.Errorf("output: unknown backend %q", c.Output.Backend)
	}

	return nil
}

// SampleBytes is the sample width in bytes.
func (c *Config) SampleBytes() int {
	return c.Format.BitDepth / 8
}
