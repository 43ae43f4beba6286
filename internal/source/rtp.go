// Package source implements the inbound transport: collaborators that
// deliver PCM packets into the engine's write region, re-arm reception, and
// carry the rate feedback back toward the data source.
package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/pion/rtp"
	log "github.com/sirupsen/logrus"

	"exp-rtp-audio-playback/internal/playback"
)

// RTP receives uncompressed PCM packets over RTP/UDP and feeds them to the
// engine. Every feedbackEvery packets it reports the engine's current rate
// value back to the packet origin.
type RTP struct {
	conn          *net.UDPConn
	eng           *playback.Engine
	feedbackEvery int
	log           *log.Entry
}

func NewRTP(listen string, feedbackEvery int, eng *playback.Engine) (*RTP, error) {
	addr, err := net.ResolveUDPAddr("udp", listen)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", listen, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", listen, err)
	}

	return &RTP{
		conn:          conn,
		eng:           eng,
		feedbackEvery: feedbackEvery,
		log:           log.WithField("component", "source.rtp"),
	}, nil
}

// Run receives packets until the context ends. Streaming is enabled for the
// duration of the receive loop.
func (s *RTP) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	region := s.eng.StartStreaming()
	defer s.eng.StopStreaming()

	s.log.WithField("addr", s.conn.LocalAddr()).Info("listening")

	buf := make([]byte, 4*playback.MaxPacketSize)
	var pkt rtp.Packet
	packets := 0
	for {
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		if err := pkt.Unmarshal(buf[:n]); err != nil {
			// A garbled datagram is a failed transfer: stop and refill
			// rather than play a torn packet.
			s.log.WithError(err).Warn("malformed packet")
			region = s.eng.Ingest(0)
			continue
		}
		region = deliver(s.eng, region, pkt.Payload)

		packets++
		if s.feedbackEvery > 0 && packets%s.feedbackEvery == 0 {
			s.reportFeedback(raddr)
		}
	}
}

func (s *RTP) Close() error {
	return s.conn.Close()
}

// deliver copies one packet into the current write region and hands it to
// the engine, returning the re-armed region for the next packet. An
// oversized payload is treated as a failed transfer; it must never spill
// past the region.
func deliver(eng *playback.Engine, region, payload []byte) []byte {
	if len(payload) > len(region) {
		return eng.Ingest(0)
	}
	copy(region, payload)
	return eng.Ingest(len(payload))
}

// reportFeedback sends the rate report upstream: four little endian bytes
// holding the 10.14 samples-per-period value.
func (s *RTP) reportFeedback(addr *net.UDPAddr) {
	var report [4]byte
	binary.LittleEndian.PutUint32(report[:], s.eng.FeedbackValue())
	if _, err := s.conn.WriteToUDP(report[:], addr); err != nil {
		s.log.WithError(err).Warn("send feedback report")
	}
}
