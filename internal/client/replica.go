package client

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// View is an immutable copy of the mirrored lobby.
type View struct {
	Self     domain.UserID
	LobbyID  domain.LobbyID
	Name     domain.LobbyName
	HostID   domain.UserID
	Users    map[domain.UserID]domain.User
	Order    []domain.UserID
	Settings domain.PublicSettings

	// Boom is the override announced by the server.
	Boom     bool
	BoomHost domain.UserID
	// LocalBoom is set while self, as host, runs an override.
	LocalBoom bool
}

func (v View) InLobby() bool { return v.LobbyID != "" }

func (v View) IsHost() bool { return v.InLobby() && v.HostID == v.Self }

// Replica mirrors one lobby, starting from a snapshot and patched by
// events in arrival order.
type Replica struct {
	mu    sync.RWMutex
	state View
}

func NewReplica() *Replica { return &Replica{} }

func (r *Replica) Reset(self domain.UserID, snap domain.LobbySnapshot) {
	users := make(map[domain.UserID]domain.User, len(snap.Users))
	order := make([]domain.UserID, 0, len(snap.Users))
	for _, u := range snap.Users {
		users[u.ID] = u
		order = append(order, u.ID)
	}
	r.mu.Lock()
	r.state = View{
		Self:     self,
		LobbyID:  snap.ID,
		Name:     snap.Name,
		HostID:   snap.HostID,
		Users:    users,
		Order:    order,
		Settings: snap.Settings,
	}
	r.mu.Unlock()
}

func (r *Replica) Clear() {
	r.mu.Lock()
	r.state = View{}
	r.mu.Unlock()
}

func (r *Replica) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := r.state
	v.Users = maps.Clone(r.state.Users)
	v.Order = slices.Clone(r.state.Order)
	return v
}

// Apply patches the mirror with one broadcast event and reports whether
// anything changed. Events for unknown users and foreign types are ignored.
func (r *Replica) Apply(data []byte) bool {
	typ, err := protocol.PeekType(data)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.LobbyID == "" {
		return false
	}

	switch typ {
	case protocol.TypeUserJoined:
		var m protocol.UserJoined
		if !decode(data, &m) {
			return false
		}
		if _, ok := r.state.Users[m.User.ID]; !ok {
			r.state.Order = append(r.state.Order, m.User.ID)
		}
		r.state.Users[m.User.ID] = m.User
		return true

	case protocol.TypeUserLeft:
		var m protocol.UserLeft
		if !decode(data, &m) {
			return false
		}
		if _, ok := r.state.Users[m.UserID]; !ok {
			return false
		}
		delete(r.state.Users, m.UserID)
		r.state.Order = slices.DeleteFunc(r.state.Order, func(id domain.UserID) bool { return id == m.UserID })
		return true

	case protocol.TypeNewHost:
		var m protocol.NewHost
		if !decode(data, &m) {
			return false
		}
		if _, ok := r.state.Users[m.HostID]; !ok {
			return false
		}
		r.state.HostID = m.HostID
		return true

	case protocol.TypeUserPositionUpdated:
		var m protocol.UserPositionUpdated
		if !decode(data, &m) {
			return false
		}
		u, ok := r.state.Users[m.UserID]
		if !ok {
			return false
		}
		u.Position = m.Position
		r.state.Users[m.UserID] = u
		return true

	case protocol.TypeUserOrientationUpdated:
		var m protocol.UserOrientationUpdated
		if !decode(data, &m) {
			return false
		}
		u, ok := r.state.Users[m.UserID]
		if !ok {
			return false
		}
		u.Orientation = m.Orientation
		r.state.Users[m.UserID] = u
		return true

	case protocol.TypeLobbySettingsUpdated:
		var m protocol.LobbySettingsUpdated
		if !decode(data, &m) {
			return false
		}
		r.state.Settings = m.Settings
		return true

	case protocol.TypeHostBoomVoice:
		var m protocol.HostBoomVoice
		if !decode(data, &m) {
			return false
		}
		r.state.Boom = m.Active
		r.state.BoomHost = m.HostID
		return true
	}
	return false
}

// SetSelfPosition is the optimistic local move sent alongside updatePosition.
func (r *Replica) SetSelfPosition(p domain.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.state.Users[r.state.Self]; ok {
		u.Position = p
		r.state.Users[r.state.Self] = u
	}
}

func (r *Replica) SetSelfOrientation(o float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.state.Users[r.state.Self]; ok {
		u.Orientation = o
		r.state.Users[r.state.Self] = u
	}
}

func (r *Replica) SetLocalBoom(on bool) {
	r.mu.Lock()
	r.state.LocalBoom = on
	r.mu.Unlock()
}

// ToggleMute flips the local mute flag of peer and returns the new value.
func (r *Replica) ToggleMute(peer domain.UserID) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.state.Users[peer]
	if !ok || peer == r.state.Self {
		return false, false
	}
	u.IsMuted = !u.IsMuted
	r.state.Users[peer] = u
	return u.IsMuted, true
}

func decode(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "client.replica").Msg("bad event")
		return false
	}
	return true
}
