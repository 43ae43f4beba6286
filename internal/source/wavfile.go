package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	log "github.com/sirupsen/logrus"

	"exp-rtp-audio-playback/internal/playback"
)

// WAV streams a PCM file into the engine at the packet cadence. It consumes
// the engine's feedback value directly, sizing each packet the way a real
// source honors the rate report, which closes the correction loop without a
// network peer.
type WAV struct {
	eng  *playback.Engine
	file *os.File
	dec  *wav.Decoder
	log  *log.Entry
}

func NewWAV(path string, eng *playback.Engine) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid wav file: %s", path)
	}

	// Samples pass through unmodified, so the file must already match the
	// negotiated stream format.
	fm := eng.Format()
	if int(dec.SampleRate) != fm.SampleRate ||
		int(dec.NumChans) != playback.ChannelCount ||
		int(dec.BitDepth) != 8*fm.SampleBytes {
		f.Close()
		return nil, fmt.Errorf("wav is %d Hz / %d bit / %d ch, stream format wants %d Hz / %d bit / %d ch",
			dec.SampleRate, dec.BitDepth, dec.NumChans,
			fm.SampleRate, 8*fm.SampleBytes, playback.ChannelCount)
	}

	return &WAV{
		eng:  eng,
		file: f,
		dec:  dec,
		log:  log.WithField("component", "source.wav"),
	}, nil
}

func (s *WAV) Run(ctx context.Context) error {
	region := s.eng.StartStreaming()
	defer s.eng.StopStreaming()

	fm := s.eng.Format()
	s.log.WithField("file", s.file.Name()).Info("streaming")

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	var clk packetClock
	pcm := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: playback.ChannelCount,
			SampleRate:  fm.SampleRate,
		},
		Data: make([]int, playback.MaxPacketSize/fm.SampleBytes),
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		samples := clk.frames(s.eng.FeedbackValue()) * playback.ChannelCount
		pcm.Data = pcm.Data[:samples]
		n, err := s.dec.PCMBuffer(pcm)
		if err != nil {
			return fmt.Errorf("read pcm: %w", err)
		}
		if n == 0 {
			s.log.Info("end of file")
			return nil
		}
		region = s.eng.Ingest(encodePCM(region, pcm.Data[:n], fm.SampleBytes))
	}
}

func (s *WAV) Close() error {
	return s.file.Close()
}

// encodePCM serializes samples little endian at the stream's sample width
// and returns the byte count. This is layout, not conversion: the values
// are carried as decoded.
func encodePCM(dst []byte, samples []int, sampleBytes int) int {
	off := 0
	for _, v := range samples {
		switch sampleBytes {
		case 2:
			binary.LittleEndian.PutUint16(dst[off:], uint16(int16(v)))
		case 4:
			binary.LittleEndian.PutUint32(dst[off:], uint32(int32(v)))
		}
		off += sampleBytes
	}
	return off
}
