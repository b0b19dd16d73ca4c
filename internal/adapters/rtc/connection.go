package rtc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/client"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const opsBuffer = 32

// PeerTransport is a single voice link backed by a pion PeerConnection.
// Negotiation steps run one at a time on a dedicated goroutine so that the
// caller never blocks on SDP work.
type PeerTransport struct {
	peer     domain.UserID
	role     client.Role
	pc       *webrtc.PeerConnection
	events   client.LinkEvents
	playback client.Playback

	ops  chan func()
	done chan struct{}
	once sync.Once

	// touched only by run
	pending []webrtc.ICECandidateInit
}

func newPeerTransport(peer domain.UserID, role client.Role, pc *webrtc.PeerConnection, events client.LinkEvents, playback client.Playback) *PeerTransport {
	t := &PeerTransport{
		peer:     peer,
		role:     role,
		pc:       pc,
		events:   events,
		playback: playback,
		ops:      make(chan func(), opsBuffer),
		done:     make(chan struct{}),
	}
	t.bind()
	go t.run()
	return t
}

func (t *PeerTransport) bind() {
	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("marshal candidate")
			return
		}
		t.events.Signal(protocol.TypeRTCIceCandidate, payload)
	})

	t.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Debug().Str("module", "rtc").Str("peer", string(t.peer)).Str("state", s.String()).Msg("connection state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			t.events.Connected()
		case webrtc.PeerConnectionStateFailed:
			t.finish(fmt.Errorf("%w: ice failed", domain.ErrPeerNegotiation))
		case webrtc.PeerConnectionStateClosed:
			t.finish(nil)
		}
	})

	t.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().Str("module", "rtc").Str("peer", string(t.peer)).Str("codec", track.Codec().MimeType).Msg("remote audio")
		if t.playback != nil {
			t.playback.Attach(t.peer, &remoteAudio{track: track})
		}
	})
}

func (t *PeerTransport) run() {
	for {
		select {
		case <-t.done:
			return
		case op := <-t.ops:
			op()
		}
	}
}

func (t *PeerTransport) enqueue(op func()) error {
	select {
	case <-t.done:
		return fmt.Errorf("%w: link closed", domain.ErrPeerNegotiation)
	default:
	}
	select {
	case t.ops <- op:
		return nil
	case <-t.done:
		return fmt.Errorf("%w: link closed", domain.ErrPeerNegotiation)
	}
}

func (t *PeerTransport) Start() error {
	if t.role != client.Initiator {
		return nil
	}
	return t.enqueue(func() {
		offer, err := t.pc.CreateOffer(nil)
		if err != nil {
			t.fail("create offer", err)
			return
		}
		if err := t.pc.SetLocalDescription(offer); err != nil {
			t.fail("set local offer", err)
			return
		}
		t.signalDescription(protocol.TypeRTCOffer, offer)
	})
}

func (t *PeerTransport) HandleSignal(kind string, payload json.RawMessage) error {
	switch kind {
	case protocol.TypeRTCOffer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("%w: bad offer: %v", domain.ErrPeerNegotiation, err)
		}
		return t.enqueue(func() { t.onOffer(sd) })
	case protocol.TypeRTCAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("%w: bad answer: %v", domain.ErrPeerNegotiation, err)
		}
		return t.enqueue(func() { t.onAnswer(sd) })
	case protocol.TypeRTCIceCandidate:
		var c webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("%w: bad candidate: %v", domain.ErrPeerNegotiation, err)
		}
		return t.enqueue(func() { t.onCandidate(c) })
	}
	return fmt.Errorf("%w: unknown signal %q", domain.ErrPeerNegotiation, kind)
}

func (t *PeerTransport) onOffer(sd webrtc.SessionDescription) {
	if err := t.pc.SetRemoteDescription(sd); err != nil {
		t.fail("set remote offer", err)
		return
	}
	t.flushCandidates()
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		t.fail("create answer", err)
		return
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		t.fail("set local answer", err)
		return
	}
	t.signalDescription(protocol.TypeRTCAnswer, answer)
}

func (t *PeerTransport) onAnswer(sd webrtc.SessionDescription) {
	if err := t.pc.SetRemoteDescription(sd); err != nil {
		t.fail("set remote answer", err)
		return
	}
	t.flushCandidates()
}

// Candidates may outrun the description they belong to.
func (t *PeerTransport) onCandidate(c webrtc.ICECandidateInit) {
	if t.pc.RemoteDescription() == nil {
		t.pending = append(t.pending, c)
		return
	}
	if err := t.pc.AddICECandidate(c); err != nil {
		log.Warn().Err(err).Str("module", "rtc").Str("peer", string(t.peer)).Msg("add candidate")
	}
}

func (t *PeerTransport) flushCandidates() {
	for _, c := range t.pending {
		if err := t.pc.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("peer", string(t.peer)).Msg("add queued candidate")
		}
	}
	t.pending = nil
}

func (t *PeerTransport) signalDescription(kind string, sd webrtc.SessionDescription) {
	payload, err := json.Marshal(sd)
	if err != nil {
		t.fail("marshal description", err)
		return
	}
	t.events.Signal(kind, payload)
}

func (t *PeerTransport) fail(step string, err error) {
	t.finish(fmt.Errorf("%w: %s: %v", domain.ErrPeerNegotiation, step, err))
}

func (t *PeerTransport) SetVolume(v float64) {
	if t.playback != nil {
		t.playback.SetVolume(t.peer, v)
	}
}

func (t *PeerTransport) Close() error {
	t.finish(nil)
	return nil
}

// finish tears the link down once; the report to LinkEvents happens off the
// caller's stack.
func (t *PeerTransport) finish(err error) {
	t.once.Do(func() {
		close(t.done)
		go func() {
			if cerr := t.pc.Close(); cerr != nil {
				log.Debug().Err(cerr).Str("module", "rtc").Str("peer", string(t.peer)).Msg("close peer connection")
			}
			if t.playback != nil {
				t.playback.Detach(t.peer)
			}
			t.events.Closed(err)
		}()
	})
}

type remoteAudio struct {
	track *webrtc.TrackRemote
}

func (a *remoteAudio) Codec() string { return a.track.Codec().MimeType }

func (a *remoteAudio) Read() ([]byte, error) {
	pkt, _, err := a.track.ReadRTP()
	if err != nil {
		return nil, err
	}
	return pkt.Payload, nil
}
