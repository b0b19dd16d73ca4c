package client

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"go.uber.org/mock/gomock"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (s *recordingSender) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, b)
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) last(t *testing.T, v any) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		t.Fatal("nothing sent")
	}
	b := s.msgs[len(s.msgs)-1]
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatal(err)
	}
	typ, _ := protocol.PeekType(b)
	return typ
}

type staticPrefs struct {
	name        string
	sensitivity float64
}

func (p *staticPrefs) Username() string         { return p.name }
func (p *staticPrefs) SetUsername(n string)     { p.name = n }
func (p *staticPrefs) Sensitivity() float64     { return p.sensitivity }
func (p *staticPrefs) SetSensitivity(s float64) { p.sensitivity = s }

// permissiveFactory hands out transports that accept anything.
func permissiveFactory(ctrl *gomock.Controller) *MockTransportFactory {
	f := NewMockTransportFactory(ctrl)
	f.EXPECT().NewTransport(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(domain.UserID, Role, LinkEvents) (Transport, error) {
			tr := NewMockTransport(ctrl)
			tr.EXPECT().Start().Return(nil).AnyTimes()
			tr.EXPECT().SetVolume(gomock.Any()).AnyTimes()
			tr.EXPECT().HandleSignal(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			tr.EXPECT().Close().Return(nil).AnyTimes()
			return tr, nil
		}).AnyTimes()
	return f
}

func joined(t *testing.T, s *Session, self string, users ...domain.User) {
	t.Helper()
	s.Handle(frame(t, protocol.LobbyEntered{
		Type:      protocol.TypeJoinedLobby,
		LobbyID:   "l1",
		UserID:    domain.UserID(self),
		LobbyInfo: snapshot(users...),
	}))
}

func TestSessionJoinOpensNearbyLinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := NewSession(&recordingSender{}, permissiveFactory(ctrl), &staticPrefs{name: "b"})

	joined(t, s, "b", user("a", 500, 500), user("b", 500, 500), user("c", 900, 900))
	if links := s.Links().Links(); len(links) != 1 || links["a"].Role != Responder {
		t.Fatalf("links = %+v", links)
	}

	s.Handle(frame(t, protocol.UserPositionUpdated{Type: protocol.TypeUserPositionUpdated, UserID: "c", Position: domain.Position{X: 520, Y: 500}}))
	if _, ok := s.Links().Links()["c"]; !ok {
		t.Error("approaching peer not linked")
	}

	s.Handle(frame(t, protocol.LeftLobby{Type: protocol.TypeLeftLobby, LobbyID: "l1"}))
	if len(s.Links().Links()) != 0 || s.View().InLobby() {
		t.Error("leftLobby kept state")
	}
}

func TestSessionBoomFromServer(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := NewSession(&recordingSender{}, permissiveFactory(ctrl), nil)
	joined(t, s, "b", user("h", 0, 0), user("b", 1000, 1000))
	if len(s.Links().Links()) != 0 {
		t.Fatal("far host linked")
	}
	s.Handle(frame(t, protocol.HostBoomVoice{Type: protocol.TypeHostBoomVoice, Active: true, HostID: "h"}))
	if l, ok := s.Links().Links()["h"]; !ok || l.Volume != 1 {
		t.Fatalf("boom link = %+v %v", l, ok)
	}
	s.Handle(frame(t, protocol.HostBoomVoice{Type: protocol.TypeHostBoomVoice, Active: false, HostID: "h"}))
	if len(s.Links().Links()) != 0 {
		t.Error("boom link survived revert")
	}
}

func TestSessionLocalBoomAsHost(t *testing.T) {
	ctrl := gomock.NewController(t)
	out := &recordingSender{}
	s := NewSession(out, permissiveFactory(ctrl), nil)
	var fire func()
	var window time.Duration
	s.AfterFunc = func(d time.Duration, f func()) { window, fire = d, f }

	joined(t, s, "h", user("h", 0, 0), user("b", 1000, 1000))
	if err := s.BoomVoice(); err != nil {
		t.Fatal(err)
	}
	var req protocol.BoomVoiceRequest
	if typ := out.last(t, &req); typ != protocol.TypeBoomVoice || req.LobbyID != "l1" {
		t.Fatalf("sent %s %+v", typ, req)
	}
	if window != BoomDuration {
		t.Errorf("window = %v", window)
	}
	if _, ok := s.Links().Links()["b"]; !ok {
		t.Fatal("host dropped far peer during boom")
	}
	fire()
	if len(s.Links().Links()) != 0 {
		t.Error("far peer kept after boom window")
	}
}

func TestSessionMoveAndTurn(t *testing.T) {
	ctrl := gomock.NewController(t)
	out := &recordingSender{}
	s := NewSession(out, permissiveFactory(ctrl), &staticPrefs{sensitivity: 50})
	joined(t, s, "a", user("a", 995, 500))

	if err := s.Move(domain.Forward); err != nil {
		t.Fatal(err)
	}
	var pos protocol.UpdatePositionRequest
	out.last(t, &pos)
	if pos.Position != (domain.Position{X: 1000, Y: 500}) {
		t.Errorf("position = %+v", pos.Position)
	}
	if s.View().Users["a"].Position != pos.Position {
		t.Error("move not applied locally")
	}

	if err := s.Turn(10); err != nil {
		t.Fatal(err)
	}
	var turn protocol.UpdateOrientationRequest
	out.last(t, &turn)
	if want := 10 * domain.TurnRate(50); turn.Orientation != want {
		t.Errorf("orientation = %v, want %v", turn.Orientation, want)
	}
}

func TestSessionRelaysNegotiation(t *testing.T) {
	ctrl := gomock.NewController(t)
	out := &recordingSender{}
	s := NewSession(out, permissiveFactory(ctrl), nil)

	cand := json.RawMessage(`{"candidate":"candidate:1 1 UDP 1 10.0.0.1 5000 typ host"}`)
	if err := s.SendSignal(protocol.TypeRTCIceCandidate, "peer", cand); err != nil {
		t.Fatal(err)
	}
	var req protocol.RTCRequest
	out.last(t, &req)
	if req.TargetUserID != "peer" || string(req.Candidate) != string(cand) || req.SDP != nil {
		t.Errorf("request = %+v", req)
	}
}

func TestSessionKeepsListing(t *testing.T) {
	s := NewSession(&recordingSender{}, nil, nil)
	s.Handle(frame(t, protocol.LobbiesUpdated{
		Type:    protocol.TypeLobbiesUpdated,
		Lobbies: []domain.LobbyListing{{ID: "l1", Name: "x", MemberCount: 1, MaxUsers: 10}},
	}))
	if got := s.Lobbies(); len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("lobbies = %+v", got)
	}
}

func TestSessionIgnoresLeftLobbyOfPreviousLobby(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := NewSession(&recordingSender{}, permissiveFactory(ctrl), &staticPrefs{name: "b"})
	joined(t, s, "b", user("a", 500, 500), user("b", 500, 500))

	s.Handle(frame(t, protocol.LeftLobby{Type: protocol.TypeLeftLobby, LobbyID: "old"}))

	if v := s.View(); v.LobbyID != "l1" || len(s.Links().Links()) != 1 {
		t.Fatalf("switch confirmation cleared the new lobby: %+v", v)
	}
}

func TestSessionPreferences(t *testing.T) {
	ctrl := gomock.NewController(t)
	out := &recordingSender{}
	prefs := &staticPrefs{}
	s := NewSession(out, permissiveFactory(ctrl), prefs)

	s.SetUsername("")
	if err := s.CreateLobby("room", ""); err != nil {
		t.Fatal(err)
	}
	var req protocol.CreateLobbyRequest
	out.last(t, &req)
	if req.Username != domain.DefaultUsername {
		t.Errorf("username = %q", req.Username)
	}

	tests := []struct {
		in, want float64
	}{
		{30, 30},
		{250, MaxSensitivity},
		{-5, 0},
	}
	for _, tt := range tests {
		s.SetSensitivity(tt.in)
		if prefs.sensitivity != tt.want {
			t.Errorf("SetSensitivity(%v) stored %v, want %v", tt.in, prefs.sensitivity, tt.want)
		}
	}
}
