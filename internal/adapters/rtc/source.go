package rtc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// MediaSource is the local microphone as far as links are concerned.
type MediaSource interface {
	Track() webrtc.TrackLocal
	Start(ctx context.Context) error
	Stop()
}

const (
	opusFrame       = 20 * time.Millisecond
	opusClockRate   = 48000
	opusFrameTicks  = opusClockRate / 1000 * 20
	opusPayloadType = 111
)

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SilenceSource keeps every link's audio track alive without a capture
// device, which is all a headless participant has.
type SilenceSource struct {
	track *webrtc.TrackLocalStaticRTP

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint16
	ts     uint32
	ssrc   uint32
}

func NewSilenceSource(streamID string) (*SilenceSource, error) {
	track, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: opusClockRate,
		Channels:  2,
	}, "audio", streamID)
	if err != nil {
		return nil, fmt.Errorf("new local track: %w", err)
	}
	return &SilenceSource{
		track: track,
		seq:   uint16(rand.Uint32()),
		ts:    rand.Uint32(),
		ssrc:  rand.Uint32(),
	}, nil
}

func (s *SilenceSource) Track() webrtc.TrackLocal { return s.track }

func (s *SilenceSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("silence source already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	return nil
}

func (s *SilenceSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *SilenceSource) loop(ctx context.Context) {
	t := time.NewTicker(opusFrame)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.track.WriteRTP(s.next()); err != nil {
				log.Debug().Err(err).Str("module", "rtc").Msg("write silence")
			}
		}
	}
}

// next builds the following packet in the stream.
func (s *SilenceSource) next() *rtp.Packet {
	p := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: s.seq,
			Timestamp:      s.ts,
			SSRC:           s.ssrc,
		},
		Payload: opusSilence,
	}
	s.seq++
	s.ts += opusFrameTicks
	return p
}
