// Package playback bridges a source-clocked stream of PCM packets to a
// hardware-clocked audio output. It owns the circular sample buffer, the
// producer and consumer cursors, the fill-level hysteresis that gates
// playback, and the feedback correction reported back to the source.
package playback

import "fmt"

const (
	// ChannelCount is fixed; the bridge carries stereo PCM only.
	ChannelCount = 2

	// NativeTransferBytes is the output transfer granularity. The sink moves
	// audio in 16 bit units even when samples are 32 bit wide, which is why
	// wide samples need their half-words swapped on ingest.
	NativeTransferBytes = 2

	// bufferPacketCount sets the nominal buffer size as a multiple of the
	// packet size.
	bufferPacketCount = 16

	// packetPeriodMs is the delivery cadence of the inbound transport: one
	// packet per millisecond, like an isochronous endpoint.
	packetPeriodMs = 1000

	maxSampleRate  = 96000
	maxSampleBytes = 4
)

// MaxPacketSize is the largest transfer the inbound transport may deliver:
// one frame above nominal at the widest supported format, so a source that
// applies rate feedback can send long packets.
const MaxPacketSize = ChannelCount * maxSampleBytes * (maxSampleRate/packetPeriodMs + 1)

// StorageSize is the capacity of the sample arena. The tail margin past the
// largest nominal buffer absorbs the worst-case wraparound overflow of one
// packet.
const StorageSize = bufferPacketCount*ChannelCount*maxSampleBytes*(maxSampleRate/packetPeriodMs) + MaxPacketSize

// Format is the stream geometry derived from a negotiated sample format. It
// is immutable for the lifetime of an Engine.
type Format struct {
	SampleRate  int // Hz
	SampleBytes int // bytes per sample, per channel

	PacketSize     int // nominal bytes per delivery period
	BufferSize     int // nominal circular buffer size, bytes
	TargetFillSize int // fill level at which playback starts, bytes
}

// FormatFor derives the stream geometry for a supported sample rate and
// width. The target fill size sits half a packet above half the buffer:
// fill is only sampled right after a packet arrives, so the average level
// then rests at mid-buffer.
func FormatFor(sampleRate, sampleBytes int) (Format, error) {
	switch sampleRate {
	case 48000, 96000:
	default:
		return Format{}, fmt.Errorf("unsupported sample rate %d Hz", sampleRate)
	}
	if sampleBytes != 2 && sampleBytes != 4 {
		return Format{}, fmt.Errorf("unsupported sample width %d bytes", sampleBytes)
	}

	f := Format{
		SampleRate:  sampleRate,
		SampleBytes: sampleBytes,
	}
	f.PacketSize = ChannelCount * sampleBytes * (sampleRate / packetPeriodMs)
	f.BufferSize = bufferPacketCount * f.PacketSize
	f.TargetFillSize = f.BufferSize/2 + f.PacketSize/2
	return f, nil
}

// wideSamples reports whether samples are double the native transfer width,
// which requires the half-word order fix-up on ingest.
func (f Format) wideSamples() bool {
	return f.SampleBytes == 2*NativeTransferBytes
}
