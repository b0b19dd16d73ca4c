package rtc

import (
	"fmt"
	"io"

	"github.com/dkeye/ProximityVoice/internal/client"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Factory builds one PeerTransport per voice link, all sharing one API and
// one local audio source.
type Factory struct {
	api      *webrtc.API
	conf     webrtc.Configuration
	source   MediaSource
	playback client.Playback
}

func DefaultConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		iceServers = []string{"stun:stun.l.google.com:19302"}
	}
	c := webrtc.Configuration{ICEServers: make([]webrtc.ICEServer, 0, len(iceServers))}
	for _, url := range iceServers {
		c.ICEServers = append(c.ICEServers, webrtc.ICEServer{URLs: []string{url}})
	}
	return c
}

func NewFactory(iceServers []string, logLevel zerolog.Level, source MediaSource, playback client.Playback) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	s := webrtc.SettingEngine{LoggerFactory: NewPionLogger(logLevel)}

	return &Factory{
		api:      webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s)),
		conf:     DefaultConfig(iceServers),
		source:   source,
		playback: playback,
	}, nil
}

func (f *Factory) NewTransport(peer domain.UserID, role client.Role, events client.LinkEvents) (client.Transport, error) {
	pc, err := f.api.NewPeerConnection(f.conf)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	if f.source != nil {
		sender, err := pc.AddTrack(f.source.Track())
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add local track: %w", err)
		}
		go drainRTCP(sender)
	} else if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("add transceiver: %w", err)
	}

	t := newPeerTransport(peer, role, pc, events, f.playback)
	log.Debug().Str("module", "rtc").Str("peer", string(peer)).Stringer("role", role).Msg("transport created")
	return t, nil
}

// drainRTCP keeps interceptors such as NACK running.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Str("module", "rtc").Msg("rtcp reader stopped")
			}
			return
		}
	}
}
