package playback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingAdvance(t *testing.T) {
	r := newRing(1024)

	off := r.advance(0, 256)
	require.Equal(t, 256, off)

	off = r.advance(off, 256)
	require.Equal(t, 512, off)

	// Landing exactly on the boundary wraps to zero with no copy-back.
	off = r.advance(off, 512)
	require.Equal(t, 0, off)
}

func TestRingWraparoundPreservesBytes(t *testing.T) {
	r := newRing(1024)

	// A packet written at offset 960 spans the boundary by 192 bytes.
	off := 960
	region := r.writeRegion(off)
	for i := 0; i < 256; i++ {
		region[i] = byte(i)
	}

	off = r.advance(off, 256)
	require.Equal(t, 192, off)

	// Bytes before the boundary stay in place.
	for i := 0; i < 64; i++ {
		require.Equal(t, byte(i), r.storage[960+i], "pre-wrap byte %d", i)
	}
	// Excess bytes were copied back to the start of the window.
	for i := 0; i < 192; i++ {
		require.Equal(t, byte(64+i), r.storage[i], "post-wrap byte %d", i)
	}
}

func TestFillDistance(t *testing.T) {
	tests := []struct {
		name     string
		writeOff int
		readOff  int
		size     int
		want     int
	}{
		{"empty", 0, 0, 4096, 0},
		{"forward", 2304, 256, 4096, 2048},
		{"wrapped", 256, 3840, 4096, 512},
		{"full distance", 4095, 0, 4096, 4095},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, fillDistance(tt.writeOff, tt.readOff, tt.size))
		})
	}
}

func TestSwapHalfWords(t *testing.T) {
	// The word 0xAABBCCDD in little endian memory order.
	b := []byte{0xDD, 0xCC, 0xBB, 0xAA}
	swapHalfWords(b)
	// Stored word must read back as 0xCCDDAABB.
	require.Equal(t, []byte{0xBB, 0xAA, 0xDD, 0xCC}, b)
}

func TestSwapHalfWordsIgnoresTrailingBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6}
	swapHalfWords(b)
	require.Equal(t, []byte{3, 4, 1, 2, 5, 6}, b)
}
