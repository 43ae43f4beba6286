package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	require.Equal(t, 48000, cfg.Format.SampleRateHz)
	require.Equal(t, 16, cfg.Format.BitDepth)
	require.Equal(t, 2, cfg.SampleBytes())
	require.Equal(t, "rtp", cfg.Source.Kind)
	require.Equal(t, ":5004", cfg.Source.Listen)
	require.Equal(t, 8, cfg.Source.FeedbackEveryPackets)
	require.Equal(t, "oto", cfg.Output.Backend)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
format:
  sample_rate_hz: 96000
  bit_depth: 32
source:
  kind: wav
  path: /tmp/test.wav
output:
  backend: portaudio
metrics:
  listen: ":9100"
logging:
  level: debug
  json: true
`))
	require.NoError(t, err)

	require.Equal(t, 96000, cfg.Format.SampleRateHz)
	require.Equal(t, 4, cfg.SampleBytes())
	require.Equal(t, "wav", cfg.Source.Kind)
	require.Equal(t, "/tmp/test.wav", cfg.Source.Path)
	require.Equal(t, "portaudio", cfg.Output.Backend)
	require.Equal(t, ":9100", cfg.Metrics.Listen)
	require.True(t, cfg.Logging.JSON)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad rate", "format:\n  sample_rate_hz: 44100\n"},
		{"bad depth", "format:\n  bit_depth: 24\n"},
		{"bad source kind", "source:\n  kind: pipe\n"},
		{"wav without path", "source:\n  kind: wav\n"},
		{"bad backend", "output:\n  backend: alsa\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
