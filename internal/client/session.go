package client

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// BoomDuration mirrors the server-side override window.
const BoomDuration = 5 * time.Second

// Sender is the outbound half of the signal connection.
type Sender interface {
	Send(v any) error
}

// Session ties the signal connection, the replica and the link manager
// together. Every applied event is followed by a reconcile.
type Session struct {
	out     Sender
	replica *Replica
	links   *LinkManager
	prefs   Preferences

	// AfterFunc drives the local boom window; time.AfterFunc when nil.
	AfterFunc func(d time.Duration, f func())
	// OnEvent, when set, sees every inbound frame after it was applied.
	OnEvent func(typ string, data []byte)

	mu      sync.Mutex
	lobbies []domain.LobbyListing
}

func NewSession(out Sender, factory TransportFactory, prefs Preferences) *Session {
	s := &Session{
		out:     out,
		replica: NewReplica(),
		prefs:   prefs,
	}
	s.links = NewLinkManager(factory, s)
	return s
}

func (s *Session) Replica() *Replica   { return s.replica }
func (s *Session) Links() *LinkManager { return s.links }
func (s *Session) View() View          { return s.replica.View() }

func (s *Session) Lobbies() []domain.LobbyListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lobbies
}

// SendSignal implements Signaler over the signal connection.
func (s *Session) SendSignal(kind string, target domain.UserID, payload json.RawMessage) error {
	req := protocol.RTCRequest{Type: kind, TargetUserID: target}
	if kind == protocol.TypeRTCIceCandidate {
		req.Candidate = payload
	} else {
		req.SDP = payload
	}
	return s.out.Send(req)
}

func (s *Session) username() string {
	if s.prefs == nil {
		return ""
	}
	return s.prefs.Username()
}

// MaxSensitivity bounds the turn sensitivity; 0 disables turning.
const MaxSensitivity = 100

// SetUsername remembers the name used by the next create or join.
func (s *Session) SetUsername(name string) {
	if s.prefs != nil {
		s.prefs.SetUsername(domain.SanitizeUsername(name))
	}
}

// SetSensitivity stores the turn sensitivity, clamped to [0, MaxSensitivity].
func (s *Session) SetSensitivity(v float64) {
	if s.prefs == nil || math.IsNaN(v) {
		return
	}
	s.prefs.SetSensitivity(math.Max(0, math.Min(MaxSensitivity, v)))
}

func (s *Session) CreateLobby(name, password string) error {
	return s.out.Send(protocol.CreateLobbyRequest{
		Type:      protocol.TypeCreateLobby,
		Username:  s.username(),
		LobbyName: name,
		Password:  password,
	})
}

func (s *Session) JoinLobby(id domain.LobbyID, password string) error {
	return s.out.Send(protocol.JoinLobbyRequest{
		Type:     protocol.TypeJoinLobby,
		Username: s.username(),
		LobbyID:  id,
		Password: password,
	})
}

func (s *Session) GetLobbies() error {
	return s.out.Send(protocol.SimpleRequest{Type: protocol.TypeGetLobbies})
}

func (s *Session) LeaveLobby() error {
	v := s.replica.View()
	if !v.InLobby() {
		return nil
	}
	return s.out.Send(protocol.LeaveLobbyRequest{Type: protocol.TypeLeaveLobby, LobbyID: v.LobbyID})
}

// Move takes one keyboard step, updating the mirror before the server echo.
func (s *Session) Move(dir domain.Direction) error {
	v := s.replica.View()
	self, ok := v.Users[v.Self]
	if !ok {
		return nil
	}
	pos := domain.Step(self.Position, self.Orientation, dir, domain.MoveStep).Clamp(v.Settings.BoxSize)
	return s.MoveTo(pos)
}

func (s *Session) MoveTo(pos domain.Position) error {
	v := s.replica.View()
	if !v.InLobby() || !pos.IsFinite() {
		return nil
	}
	s.replica.SetSelfPosition(pos)
	s.links.Reconcile(s.replica.View())
	return s.out.Send(protocol.UpdatePositionRequest{
		Type:     protocol.TypeUpdatePosition,
		LobbyID:  v.LobbyID,
		Position: pos,
	})
}

// Turn rotates by a horizontal mouse delta scaled by the sensitivity.
func (s *Session) Turn(dx float64) error {
	v := s.replica.View()
	self, ok := v.Users[v.Self]
	if !ok {
		return nil
	}
	sensitivity := float64(0)
	if s.prefs != nil {
		sensitivity = s.prefs.Sensitivity()
	}
	if sensitivity == 0 {
		return nil
	}
	o := domain.NormalizeOrientation(self.Orientation + dx*domain.TurnRate(sensitivity))
	s.replica.SetSelfOrientation(o)
	return s.out.Send(protocol.UpdateOrientationRequest{
		Type:        protocol.TypeUpdateOrientation,
		LobbyID:     v.LobbyID,
		Orientation: o,
	})
}

func (s *Session) UpdateSettings(patch domain.SettingsPatch) error {
	v := s.replica.View()
	if !v.InLobby() {
		return nil
	}
	return s.out.Send(protocol.UpdateLobbySettingsRequest{
		Type:     protocol.TypeUpdateLobbySettings,
		LobbyID:  v.LobbyID,
		Settings: patch,
	})
}

// BoomVoice asks the server to override proximity. The host keeps every
// link for the same window, since the server does not echo to it.
func (s *Session) BoomVoice() error {
	v := s.replica.View()
	if !v.IsHost() {
		return nil
	}
	if err := s.out.Send(protocol.BoomVoiceRequest{Type: protocol.TypeBoomVoice, LobbyID: v.LobbyID}); err != nil {
		return err
	}
	s.replica.SetLocalBoom(true)
	s.links.Reconcile(s.replica.View())

	after := s.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	lobby := v.LobbyID
	after(BoomDuration, func() {
		if s.replica.View().LobbyID != lobby {
			return
		}
		s.replica.SetLocalBoom(false)
		s.links.Reconcile(s.replica.View())
	})
	return nil
}

// ToggleMute silences peer locally.
func (s *Session) ToggleMute(peer domain.UserID) bool {
	muted, ok := s.replica.ToggleMute(peer)
	if ok {
		s.links.Reconcile(s.replica.View())
	}
	return muted
}

func (s *Session) Ping() error {
	return s.out.Send(protocol.SimpleRequest{Type: protocol.TypePing})
}

// Handle applies one inbound frame.
func (s *Session) Handle(data []byte) {
	typ, err := protocol.PeekType(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "client.session").Msg("bad frame")
		return
	}

	switch typ {
	case protocol.TypeLobbyCreated, protocol.TypeJoinedLobby:
		var m protocol.LobbyEntered
		if !decode(data, &m) {
			return
		}
		s.links.CloseAll()
		s.replica.Reset(m.UserID, m.LobbyInfo)
		s.links.Reconcile(s.replica.View())
		log.Info().Str("module", "client.session").Str("lobby", string(m.LobbyID)).Str("user", string(m.UserID)).Msg(typ)

	case protocol.TypeLeftLobby:
		var m protocol.LeftLobby
		if !decode(data, &m) {
			return
		}
		// A switch confirms the old lobby after the new one was entered.
		if m.LobbyID != "" && m.LobbyID != s.replica.View().LobbyID {
			return
		}
		s.replica.Clear()
		s.links.CloseAll()

	case protocol.TypeLobbiesUpdated:
		var m protocol.LobbiesUpdated
		if !decode(data, &m) {
			return
		}
		s.mu.Lock()
		s.lobbies = m.Lobbies
		s.mu.Unlock()

	case protocol.TypeRTCOffer, protocol.TypeRTCAnswer, protocol.TypeRTCIceCandidate:
		var m protocol.RTCRelayed
		if !decode(data, &m) {
			return
		}
		if err := s.links.HandleSignal(m.FromUserID, m.Type, m.Payload()); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Msg("negotiation")
		}

	case protocol.TypeError:
		var m protocol.Error
		if decode(data, &m) {
			log.Warn().Str("module", "client.session").Str("message", m.Message).Msg("server error")
		}

	case protocol.TypePong, protocol.TypeWhoAmI:
		log.Debug().Str("module", "client.session").Str("type", typ).Msg("control reply")

	default:
		if s.replica.Apply(data) {
			s.links.Reconcile(s.replica.View())
		}
	}

	if s.OnEvent != nil {
		s.OnEvent(typ, data)
	}
}

// Run reads from conn until it drops, then closes every link.
func (s *Session) Run(ctx context.Context, conn *Conn) error {
	defer s.links.CloseAll()
	return conn.ReadLoop(ctx, s.Handle)
}
