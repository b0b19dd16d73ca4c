package core

import (
	"errors"
	"slices"
	"testing"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
)

func intp(v int) *int { return &v }

func newTestLobby(t *testing.T, password string) (LobbyService, MemberSession, *fakeConn) {
	t.Helper()
	host, hc := newMember(t, "host")
	l, res := NewLobby("l1", "test", host, domain.DefaultSettings(password))
	if res.SendTo != 1 {
		t.Fatalf("lobbyCreated not delivered: %+v", res)
	}
	return l, host, hc
}

func TestNewLobbyRepliesToHost(t *testing.T) {
	l, host, hc := newTestLobby(t, "")

	var msg protocol.LobbyEntered
	hc.last(t, &msg)
	if msg.Type != protocol.TypeLobbyCreated || msg.UserID != uid(host) {
		t.Fatalf("unexpected reply %+v", msg)
	}
	if msg.LobbyInfo.HostID != uid(host) || len(msg.LobbyInfo.Users) != 1 {
		t.Errorf("snapshot = %+v", msg.LobbyInfo)
	}
	if msg.LobbyInfo.Users[0].Position != domain.SpawnPoint {
		t.Errorf("host not on spawn point: %+v", msg.LobbyInfo.Users[0].Position)
	}
	if got := l.HostID(); got != uid(host) {
		t.Errorf("HostID = %s", got)
	}
}

func TestJoinNotifiesOthers(t *testing.T) {
	l, _, hc := newTestLobby(t, "")
	hc.reset()
	u, uc := newMember(t, "alice")

	snap, res, err := l.Join(u, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.SendTo != 2 {
		t.Errorf("SendTo = %d, want 2", res.SendTo)
	}
	if len(snap.Users) != 2 || snap.Users[1].ID != uid(u) {
		t.Errorf("snapshot users = %+v", snap.Users)
	}
	if got := uc.types(); !slices.Equal(got, []string{protocol.TypeJoinedLobby}) {
		t.Errorf("joiner got %v", got)
	}
	var joined protocol.UserJoined
	hc.last(t, &joined)
	if joined.Type != protocol.TypeUserJoined || joined.User.ID != uid(u) {
		t.Errorf("host got %+v", joined)
	}
}

func TestJoinErrors(t *testing.T) {
	t.Run("password", func(t *testing.T) {
		l, _, _ := newTestLobby(t, "secret")
		u, uc := newMember(t, "bob")
		if _, _, err := l.Join(u, "nope"); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("err = %v", err)
		}
		if len(uc.types()) != 0 {
			t.Errorf("rejected joiner got frames")
		}
		if _, _, err := l.Join(u, "secret"); err != nil {
			t.Fatalf("correct password rejected: %v", err)
		}
	})

	t.Run("capacity", func(t *testing.T) {
		l, host, _ := newTestLobby(t, "")
		if _, err := l.UpdateSettings(uid(host), domain.SettingsPatch{MaxUsers: intp(2)}); err != nil {
			t.Fatal(err)
		}
		a, _ := newMember(t, "a")
		if _, _, err := l.Join(a, ""); err != nil {
			t.Fatal(err)
		}
		b, _ := newMember(t, "b")
		if _, _, err := l.Join(b, ""); !errors.Is(err, domain.ErrCapacity) {
			t.Fatalf("err = %v", err)
		}
		if l.MemberCount() != 2 {
			t.Errorf("MemberCount = %d", l.MemberCount())
		}
	})

	t.Run("closed", func(t *testing.T) {
		l, host, _ := newTestLobby(t, "")
		l.Leave(uid(host), false)
		u, _ := newMember(t, "late")
		if _, _, err := l.Join(u, ""); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestLeaveMigratesHostInJoinOrder(t *testing.T) {
	l, host, _ := newTestLobby(t, "")
	u1, c1 := newMember(t, "u1")
	u2, c2 := newMember(t, "u2")
	for _, ms := range []MemberSession{u1, u2} {
		if _, _, err := l.Join(ms, ""); err != nil {
			t.Fatal(err)
		}
	}
	c1.reset()
	c2.reset()

	out, _ := l.Leave(uid(host), false)
	if !out.Removed || out.Closed || out.NewHost != uid(u1) {
		t.Fatalf("leave result = %+v", out)
	}
	want := []string{protocol.TypeUserLeft, protocol.TypeNewHost}
	for _, c := range []*fakeConn{c1, c2} {
		if got := c.types(); !slices.Equal(got, want) {
			t.Errorf("%s got %v, want %v", c.id, got, want)
		}
	}
	if l.HostID() != uid(u1) {
		t.Errorf("HostID = %s", l.HostID())
	}
}

func TestLeaveLastClosesLobby(t *testing.T) {
	l, host, hc := newTestLobby(t, "")
	hc.reset()
	out, res := l.Leave(uid(host), true)
	if !out.Closed || res.SendTo != 0 {
		t.Fatalf("leave = %+v %+v", out, res)
	}
	if !l.Closed() {
		t.Error("lobby not closed")
	}
	if got := hc.types(); !slices.Equal(got, []string{protocol.TypeLeftLobby}) {
		t.Errorf("leaver got %v", got)
	}
	if _, listed := l.Listing(); listed {
		t.Error("closed lobby still listed")
	}
	if out, _ := l.Leave(uid(host), false); out.Removed {
		t.Error("second leave removed someone")
	}
}

func TestUpdatePositionClamps(t *testing.T) {
	l, host, hc := newTestLobby(t, "")
	hc.reset()
	res := l.UpdatePosition(uid(host), domain.Position{X: 1500, Y: -3})
	if res.SendTo != 1 {
		t.Fatalf("SendTo = %d", res.SendTo)
	}
	var msg protocol.UserPositionUpdated
	hc.last(t, &msg)
	if msg.Position != (domain.Position{X: 1000, Y: 0}) {
		t.Errorf("position = %+v", msg.Position)
	}
	if got := l.Snapshot().Users[0].Position; got != msg.Position {
		t.Errorf("stored position = %+v", got)
	}
}

func TestUpdatePositionIgnoresStrangers(t *testing.T) {
	l, _, hc := newTestLobby(t, "")
	hc.reset()
	if res := l.UpdatePosition("nobody", domain.Position{X: 1, Y: 1}); res.SendTo != 0 {
		t.Errorf("stranger broadcast reached %d", res.SendTo)
	}
	if len(hc.types()) != 0 {
		t.Error("host got frames")
	}
}

func TestUpdateSettingsHostOnly(t *testing.T) {
	l, host, hc := newTestLobby(t, "")
	u, uc := newMember(t, "guest")
	if _, _, err := l.Join(u, ""); err != nil {
		t.Fatal(err)
	}
	hc.reset()
	uc.reset()

	if _, err := l.UpdateSettings(uid(u), domain.SettingsPatch{VoiceRadius: intp(50)}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if len(hc.types())+len(uc.types()) != 0 {
		t.Fatal("rejected update was broadcast")
	}

	res, err := l.UpdateSettings(uid(host), domain.SettingsPatch{VoiceRadius: intp(150)})
	if err != nil {
		t.Fatal(err)
	}
	if res.SendTo != 2 {
		t.Errorf("SendTo = %d", res.SendTo)
	}
	var msg protocol.LobbySettingsUpdated
	uc.last(t, &msg)
	want := domain.PublicSettings{BoxSize: 1000, VoiceRadius: 150, MaxUsers: 10, IsPublic: true}
	if msg.Settings != want {
		t.Errorf("settings = %+v, want %+v", msg.Settings, want)
	}

	if _, err := l.UpdateSettings(uid(host), domain.SettingsPatch{MaxUsers: intp(1)}); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Errorf("err = %v", err)
	}
}

func TestBoomExcludesActivator(t *testing.T) {
	l, host, hc := newTestLobby(t, "")
	u, uc := newMember(t, "guest")
	if _, _, err := l.Join(u, ""); err != nil {
		t.Fatal(err)
	}
	hc.reset()
	uc.reset()

	if _, err := l.StartBoom(uid(u)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("non-host boom err = %v", err)
	}
	if _, err := l.StartBoom(uid(host)); err != nil {
		t.Fatal(err)
	}
	var on protocol.HostBoomVoice
	uc.last(t, &on)
	if !on.Active || on.HostID != uid(host) {
		t.Errorf("boom on = %+v", on)
	}
	l.EndBoom(uid(host))
	var off protocol.HostBoomVoice
	uc.last(t, &off)
	if off.Active {
		t.Error("boom not reverted")
	}
	if len(hc.types()) != 0 {
		t.Errorf("activator got %v", hc.types())
	}
}

func TestFullQueueIsReported(t *testing.T) {
	l, _, _ := newTestLobby(t, "")
	u, uc := newMember(t, "slow")
	if _, _, err := l.Join(u, ""); err != nil {
		t.Fatal(err)
	}
	uc.full = true
	res := l.UpdateOrientation(uid(u), 1)
	if len(res.Dropped) != 1 || res.Dropped[0] != SignalConnection(uc) {
		t.Fatalf("dropped = %v", res.Dropped)
	}
	if res.SendTo != 1 {
		t.Errorf("SendTo = %d", res.SendTo)
	}
}

func TestListingHidesPrivate(t *testing.T) {
	l, host, _ := newTestLobby(t, "pw")
	if _, listed := l.Listing(); listed {
		t.Fatal("private lobby listed")
	}
	pub := true
	if _, err := l.UpdateSettings(uid(host), domain.SettingsPatch{IsPublic: &pub}); err != nil {
		t.Fatal(err)
	}
	row, listed := l.Listing()
	if !listed || row.MemberCount != 1 || row.MaxUsers != 10 {
		t.Errorf("listing = %+v %v", row, listed)
	}
}
