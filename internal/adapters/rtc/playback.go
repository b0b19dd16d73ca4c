package rtc

import (
	"errors"
	"io"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/client"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/rs/zerolog/log"
)

// PeerStats describes what has been heard from one peer.
type PeerStats struct {
	Codec  string
	Volume float64
	Frames uint64
	Bytes  uint64
}

// MeterPlayback drains remote audio and keeps per-peer counters instead of
// rendering sound. Volume is tracked so the proximity mix stays observable.
type MeterPlayback struct {
	mu    sync.Mutex
	peers map[domain.UserID]*meter
}

type meter struct {
	stats PeerStats
	audio client.RemoteAudio
}

func NewMeterPlayback() *MeterPlayback {
	return &MeterPlayback{peers: make(map[domain.UserID]*meter)}
}

func (p *MeterPlayback) Attach(peer domain.UserID, audio client.RemoteAudio) {
	p.mu.Lock()
	m, ok := p.peers[peer]
	if !ok {
		m = &meter{stats: PeerStats{Volume: 1}}
		p.peers[peer] = m
	}
	m.audio = audio
	m.stats.Codec = audio.Codec()
	p.mu.Unlock()

	go p.drain(peer, m, audio)
}

func (p *MeterPlayback) drain(peer domain.UserID, m *meter, audio client.RemoteAudio) {
	for {
		frame, err := audio.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("module", "playback").Str("peer", string(peer)).Msg("remote audio ended")
			}
			return
		}
		p.mu.Lock()
		if m.audio != audio {
			p.mu.Unlock()
			return
		}
		m.stats.Frames++
		m.stats.Bytes += uint64(len(frame))
		p.mu.Unlock()
	}
}

func (p *MeterPlayback) SetVolume(peer domain.UserID, v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.peers[peer]
	if !ok {
		m = &meter{}
		p.peers[peer] = m
	}
	m.stats.Volume = v
}

func (p *MeterPlayback) Detach(peer domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.peers[peer]; ok {
		m.audio = nil
		delete(p.peers, peer)
	}
}

// Stats is a copy keyed by peer.
func (p *MeterPlayback) Stats() map[domain.UserID]PeerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[domain.UserID]PeerStats, len(p.peers))
	for id, m := range p.peers {
		out[id] = m.stats
	}
	return out
}
