package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name        string
		sampleRate  int
		sampleBytes int
		wantPacket  int
		wantBuffer  int
		wantTarget  int
	}{
		{"48k/16bit", 48000, 2, 192, 3072, 1632},
		{"48k/32bit", 48000, 4, 384, 6144, 3264},
		{"96k/16bit", 96000, 2, 384, 6144, 3264},
		{"96k/32bit", 96000, 4, 768, 12288, 6528},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := FormatFor(tt.sampleRate, tt.sampleBytes)
			require.NoError(t, err)
			require.Equal(t, tt.wantPacket, f.PacketSize)
			require.Equal(t, tt.wantBuffer, f.BufferSize)
			require.Equal(t, tt.wantTarget, f.TargetFillSize)

			// The arena must absorb a worst-case packet past the nominal end.
			require.LessOrEqual(t, f.BufferSize+MaxPacketSize, StorageSize)
		})
	}
}

func TestFormatForRejectsUnsupported(t *testing.T) {
	_, err := FormatFor(44100, 2)
	require.Error(t, err)

	_, err = FormatFor(48000, 3)
	require.Error(t, err)
}

func TestFormatWideSamples(t *testing.T) {
	narrow, err := FormatFor(48000, 2)
	require.NoError(t, err)
	require.False(t, narrow.wideSamples())

	wide, err := FormatFor(48000, 4)
	require.NoError(t, err)
	require.True(t, wide.wideSamples())
}
