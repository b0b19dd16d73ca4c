package app

import (
	"context"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Conn    core.SignalConnection
	Cancel  context.CancelFunc
	Token   string
	LobbyID domain.LobbyID
	UserID  domain.UserID
}

// Registry maps live connections to the lobby membership they hold.
// A connection is in at most one lobby at a time.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
	users map[domain.UserID]core.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
		users: make(map[domain.UserID]core.ConnID),
	}
}

func (r *Registry) BindSignal(conn core.SignalConnection, token string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = &connEntry{Conn: conn, Cancel: cancel, Token: token}
	log.Info().Str("module", "app.registry").Str("cid", conn.ID().Short()).Msg("bound signal")
}

func (r *Registry) GetConn(cid core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[cid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Unbind forgets the connection. Callers detach it from its lobby first.
func (r *Registry) Unbind(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[cid]; ok && e.UserID != "" {
		delete(r.users, e.UserID)
	}
	delete(r.conns, cid)
	log.Info().Str("module", "app.registry").Str("cid", cid.Short()).Msg("unbind signal")
}

func (r *Registry) LobbyOf(cid core.ConnID) (domain.LobbyID, domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.LobbyID == "" {
		return "", "", false
	}
	return e.LobbyID, e.UserID, true
}

func (r *Registry) Attach(cid core.ConnID, lobbyID domain.LobbyID, uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return false
	}
	if e.UserID != "" {
		delete(r.users, e.UserID)
	}
	e.LobbyID, e.UserID = lobbyID, uid
	r.users[uid] = cid
	log.Info().Str("module", "app.registry").Str("cid", cid.Short()).Str("lobby", string(lobbyID)).Str("user", string(uid)).Msg("attached to lobby")
	return true
}

// Detach clears the lobby association and returns what it was.
func (r *Registry) Detach(cid core.ConnID) (domain.LobbyID, domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok || e.LobbyID == "" {
		return "", "", false
	}
	lobbyID, uid := e.LobbyID, e.UserID
	delete(r.users, uid)
	e.LobbyID, e.UserID = "", ""
	log.Info().Str("module", "app.registry").Str("cid", cid.Short()).Str("lobby", string(lobbyID)).Msg("detached from lobby")
	return lobbyID, uid, true
}

func (r *Registry) ConnOfUser(uid domain.UserID) (core.SignalConnection, domain.LobbyID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.users[uid]
	if !ok {
		return nil, "", false
	}
	e := r.conns[cid]
	return e.Conn, e.LobbyID, true
}

func (r *Registry) TokenOf(cid core.ConnID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[cid]; ok {
		return e.Token
	}
	return ""
}

// Connections is a snapshot of every bound connection.
func (r *Registry) Connections() []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.Conn)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", cid.Short()).Msg("canceled signal")
	return true
}
