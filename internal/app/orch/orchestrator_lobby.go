package orch

import (
	"fmt"

	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// CreateLobby opens a lobby hosted by the caller. A caller already in a
// lobby leaves it first.
func (o *Orchestrator) CreateLobby(cid core.ConnID, username string, name domain.LobbyName, password string) (domain.LobbyID, domain.UserID, error) {
	conn, ok := o.Registry.GetConn(cid)
	if !ok {
		return "", "", ErrNoConnection
	}
	o.leave(cid, true)

	user, err := domain.NewUser(domain.SanitizeUsername(username))
	if err != nil {
		return "", "", fmt.Errorf("create lobby: %w", err)
	}
	ms := core.NewMemberSession(domain.NewMember(user), conn)
	lobby, res := o.Lobbies.Create(name, ms, domain.DefaultSettings(password))
	o.Registry.Attach(cid, lobby.ID(), user.ID)
	o.Metrics.MemberJoined()
	o.handlePublish(lobby, res)

	log.Info().Str("module", "app.orch").Str("cid", cid.Short()).Str("lobby", string(lobby.ID())).Msg("created lobby")
	o.PublishLobbies()
	return lobby.ID(), user.ID, nil
}

// JoinLobby adds the caller to an existing lobby. Joining the lobby the
// caller is already in is a no-op. The previous lobby is left only once the
// join succeeded, so a rejected join has no effect outside the caller.
func (o *Orchestrator) JoinLobby(cid core.ConnID, id domain.LobbyID, username, password string) (domain.UserID, error) {
	conn, ok := o.Registry.GetConn(cid)
	if !ok {
		return "", ErrNoConnection
	}
	prev, prevUID, inLobby := o.Registry.LobbyOf(cid)
	if inLobby && prev == id {
		return prevUID, nil
	}
	lobby, ok := o.Lobbies.Get(id)
	if !ok {
		return "", fmt.Errorf("join %s: %w", id, domain.ErrNotFound)
	}

	user, err := domain.NewUser(domain.SanitizeUsername(username))
	if err != nil {
		return "", fmt.Errorf("join %s: %w", id, err)
	}
	ms := core.NewMemberSession(domain.NewMember(user), conn)
	_, res, err := lobby.Join(ms, password)
	if err != nil {
		return "", fmt.Errorf("join %s: %w", id, err)
	}
	o.Registry.Attach(cid, id, user.ID)
	o.Metrics.MemberJoined()
	o.handlePublish(lobby, res)
	log.Info().Str("module", "app.orch").Str("cid", cid.Short()).Str("lobby", string(id)).Msg("joined lobby")

	if !inLobby || !o.leaveLobby(cid, prev, prevUID, true) {
		o.PublishLobbies()
	}
	return user.ID, nil
}

// LeaveLobby is ignored unless id is the caller's current lobby.
func (o *Orchestrator) LeaveLobby(cid core.ConnID, id domain.LobbyID) {
	if cur, _, ok := o.Registry.LobbyOf(cid); !ok || cur != id {
		return
	}
	o.leave(cid, true)
}

func (o *Orchestrator) leave(cid core.ConnID, notify bool) {
	lobbyID, uid, ok := o.Registry.Detach(cid)
	if !ok {
		return
	}
	o.leaveLobby(cid, lobbyID, uid, notify)
}

// leaveLobby removes uid from lobbyID; the registry entry is already
// detached or points elsewhere. It reports whether the listing was
// republished.
func (o *Orchestrator) leaveLobby(cid core.ConnID, lobbyID domain.LobbyID, uid domain.UserID, notify bool) bool {
	lobby, ok := o.Lobbies.Get(lobbyID)
	if !ok {
		return false
	}
	out, res := lobby.Leave(uid, notify)
	if !out.Removed {
		return false
	}
	o.Metrics.MemberLeft()
	if out.Closed {
		o.Lobbies.Remove(lobby)
	}
	o.handlePublish(lobby, res)
	log.Info().Str("module", "app.orch").Str("cid", cid.Short()).Str("lobby", string(lobbyID)).Bool("closed", out.Closed).Msg("left lobby")
	o.PublishLobbies()
	return true
}

// member resolves the caller's lobby, requiring it to match id.
func (o *Orchestrator) member(cid core.ConnID, id domain.LobbyID) (core.LobbyService, domain.UserID, bool) {
	cur, uid, ok := o.Registry.LobbyOf(cid)
	if !ok || cur != id {
		return nil, "", false
	}
	lobby, ok := o.Lobbies.Get(id)
	if !ok {
		return nil, "", false
	}
	return lobby, uid, true
}

func (o *Orchestrator) UpdatePosition(cid core.ConnID, id domain.LobbyID, pos domain.Position) {
	lobby, uid, ok := o.member(cid, id)
	if !ok {
		return
	}
	o.handlePublish(lobby, lobby.UpdatePosition(uid, pos))
}

func (o *Orchestrator) UpdateOrientation(cid core.ConnID, id domain.LobbyID, orientation float64) {
	lobby, uid, ok := o.member(cid, id)
	if !ok {
		return
	}
	o.handlePublish(lobby, lobby.UpdateOrientation(uid, orientation))
}

func (o *Orchestrator) UpdateSettings(cid core.ConnID, id domain.LobbyID, patch domain.SettingsPatch) error {
	if _, ok := o.Lobbies.Get(id); !ok {
		return domain.ErrNotFound
	}
	lobby, uid, ok := o.member(cid, id)
	if !ok {
		return domain.ErrUnauthorized
	}
	res, err := lobby.UpdateSettings(uid, patch)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	o.handlePublish(lobby, res)
	if patch.TouchesListing() {
		o.PublishLobbies()
	}
	return nil
}

// BoomVoice starts a host override and schedules its revert. The revert
// reaches whoever is in the lobby by then, unless the lobby is gone.
func (o *Orchestrator) BoomVoice(cid core.ConnID, id domain.LobbyID) error {
	if _, ok := o.Lobbies.Get(id); !ok {
		return domain.ErrNotFound
	}
	lobby, uid, ok := o.member(cid, id)
	if !ok {
		return domain.ErrUnauthorized
	}
	res, err := lobby.StartBoom(uid)
	if err != nil {
		return fmt.Errorf("boom voice: %w", err)
	}
	o.handlePublish(lobby, res)
	o.after(BoomDuration, func() {
		o.handlePublish(lobby, lobby.EndBoom(uid))
	})
	return nil
}

func (o *Orchestrator) PublicLobbies() []domain.LobbyListing {
	return o.Lobbies.PublicListing()
}

func (o *Orchestrator) WhoAmI(cid core.ConnID) protocol.WhoAmI {
	resp := protocol.WhoAmI{Type: protocol.TypeWhoAmI, ConnID: string(cid)}
	if lobbyID, uid, ok := o.Registry.LobbyOf(cid); ok {
		resp.LobbyID, resp.UserID = lobbyID, uid
	}
	return resp
}
