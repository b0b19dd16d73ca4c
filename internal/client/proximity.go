package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Desire is one link the current view calls for.
type Desire struct {
	Distance float64
	Volume   float64
}

// Desired computes the link set of self. Both ends of a pair evaluate the
// same predicate on the same distance, so they agree once in sync.
func Desired(v View) map[domain.UserID]Desire {
	out := make(map[domain.UserID]Desire)
	self, ok := v.Users[v.Self]
	if !ok {
		return out
	}
	radius := v.Settings.VoiceRadius
	for id, u := range v.Users {
		if id == v.Self {
			continue
		}
		d := domain.Distance(self.Position, u.Position)
		switch {
		case domain.InRange(d, radius):
			out[id] = Desire{Distance: d, Volume: domain.Volume(d, radius)}
		case v.LocalBoom && v.HostID == v.Self:
			// Keep the links peers open towards us while we boom.
			out[id] = Desire{Distance: d, Volume: 0}
		}
	}
	if v.Boom && v.BoomHost != v.Self {
		if host, ok := v.Users[v.BoomHost]; ok {
			out[v.BoomHost] = Desire{Distance: domain.Distance(self.Position, host.Position), Volume: 1}
		}
	}
	for id, d := range out {
		if v.Users[id].IsMuted {
			d.Volume = 0
			out[id] = d
		}
	}
	return out
}

// LinkInfo describes a live link.
type LinkInfo struct {
	Peer     domain.UserID
	Role     Role
	State    LinkState
	Distance float64
	Volume   float64
}

type link struct {
	LinkInfo
	t Transport
}

// LinkManager keeps the live links equal to the desired set.
type LinkManager struct {
	factory  TransportFactory
	signaler Signaler

	mu    sync.Mutex
	self  domain.UserID
	links map[domain.UserID]*link
}

func NewLinkManager(f TransportFactory, s Signaler) *LinkManager {
	return &LinkManager{
		factory:  f,
		signaler: s,
		links:    make(map[domain.UserID]*link),
	}
}

type volumeOp struct {
	t Transport
	v float64
}

// Reconcile creates missing links, closes undesired ones and pushes
// volumes. It is idempotent and only enqueues transport work.
func (m *LinkManager) Reconcile(v View) {
	want := Desired(v)

	var (
		drop    []*link
		start   []*link
		volumes []volumeOp
	)
	m.mu.Lock()
	if m.self != v.Self {
		for _, l := range m.links {
			drop = append(drop, l)
		}
		clear(m.links)
		m.self = v.Self
	}
	for peer, l := range m.links {
		if _, ok := want[peer]; !ok {
			delete(m.links, peer)
			drop = append(drop, l)
		}
	}
	for peer, d := range want {
		l, ok := m.links[peer]
		if !ok {
			var err error
			if l, err = m.newLinkLocked(peer, RoleFor(v.Self, peer)); err != nil {
				log.Warn().Err(err).Str("module", "client.links").Str("peer", string(peer)).Msg("create link")
				continue
			}
			start = append(start, l)
		}
		l.Distance = d.Distance
		if l.Volume != d.Volume || !ok {
			l.Volume = d.Volume
			volumes = append(volumes, volumeOp{l.t, d.Volume})
		}
	}
	m.mu.Unlock()

	for _, l := range drop {
		m.closeLink(l)
	}
	for _, l := range start {
		if err := l.t.Start(); err != nil {
			m.fail(l, err)
		}
	}
	for _, op := range volumes {
		op.t.SetVolume(op.v)
	}
}

func (m *LinkManager) newLinkLocked(peer domain.UserID, role Role) (*link, error) {
	l := &link{LinkInfo: LinkInfo{Peer: peer, Role: role, State: Negotiating}}
	t, err := m.factory.NewTransport(peer, role, &linkEvents{m: m, l: l})
	if err != nil {
		return nil, err
	}
	l.t = t
	m.links[peer] = l
	log.Debug().Str("module", "client.links").Str("peer", string(peer)).Stringer("role", role).Msg("link created")
	return l, nil
}

// HandleSignal routes a relayed negotiation message. An offer from a peer
// without a link opens a responder link; answers and candidates for
// unknown peers are dropped.
func (m *LinkManager) HandleSignal(from domain.UserID, kind string, payload json.RawMessage) error {
	m.mu.Lock()
	if m.self == "" {
		m.mu.Unlock()
		return nil
	}
	l, ok := m.links[from]
	if !ok {
		if kind != protocol.TypeRTCOffer {
			m.mu.Unlock()
			log.Debug().Str("module", "client.links").Str("peer", string(from)).Str("kind", kind).Msg("signal for unknown peer dropped")
			return nil
		}
		var err error
		if l, err = m.newLinkLocked(from, Responder); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("%w: %w", domain.ErrPeerNegotiation, err)
		}
	}
	m.mu.Unlock()

	if err := l.t.HandleSignal(kind, payload); err != nil {
		m.fail(l, err)
		return fmt.Errorf("%w: %s from %s: %w", domain.ErrPeerNegotiation, kind, from, err)
	}
	return nil
}

func (m *LinkManager) CloseAll() {
	m.mu.Lock()
	all := make([]*link, 0, len(m.links))
	for _, l := range m.links {
		all = append(all, l)
	}
	clear(m.links)
	m.self = ""
	m.mu.Unlock()
	for _, l := range all {
		m.closeLink(l)
	}
}

// Links is a snapshot of the live links.
func (m *LinkManager) Links() map[domain.UserID]LinkInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.UserID]LinkInfo, len(m.links))
	for id, l := range m.links {
		out[id] = l.LinkInfo
	}
	return out
}

func (m *LinkManager) closeLink(l *link) {
	if err := l.t.Close(); err != nil {
		log.Debug().Err(err).Str("module", "client.links").Str("peer", string(l.Peer)).Msg("close link")
	}
}

// fail drops l if it is still current and closes its transport.
func (m *LinkManager) fail(l *link, err error) {
	if m.forget(l) {
		logClosed(l.Peer, err)
	}
	m.closeLink(l)
}

func (m *LinkManager) forget(l *link) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.links[l.Peer]; ok && cur == l {
		delete(m.links, l.Peer)
		l.State = Closed
		return true
	}
	return false
}

func logClosed(peer domain.UserID, err error) {
	if err != nil && !errors.Is(err, domain.ErrPeerNegotiation) {
		err = fmt.Errorf("%w: %w", domain.ErrPeerNegotiation, err)
	}
	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("module", "client.links").Str("peer", string(peer)).Msg("link closed")
}

// linkEvents binds transport callbacks to one link generation, so a late
// event from a replaced transport cannot touch its successor.
type linkEvents struct {
	m *LinkManager
	l *link
}

func (e *linkEvents) Signal(kind string, payload json.RawMessage) {
	if err := e.m.signaler.SendSignal(kind, e.l.Peer, payload); err != nil {
		log.Warn().Err(err).Str("module", "client.links").Str("peer", string(e.l.Peer)).Str("kind", kind).Msg("send signal")
	}
}

func (e *linkEvents) Connected() {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	if cur, ok := e.m.links[e.l.Peer]; ok && cur == e.l {
		e.l.State = Connected
		log.Info().Str("module", "client.links").Str("peer", string(e.l.Peer)).Msg("link connected")
	}
}

func (e *linkEvents) Closed(err error) {
	if e.m.forget(e.l) {
		logClosed(e.l.Peer, err)
	}
}
