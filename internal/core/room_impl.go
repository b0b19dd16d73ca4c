package core

import (
	"crypto/subtle"
	"encoding/json"
	"slices"
	"sync"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// lobbyImpl is a threadsafe in-memory lobby.
// It never closes adapter-owned resources.
type lobbyImpl struct {
	id   domain.LobbyID
	name domain.LobbyName

	mu       sync.RWMutex
	hostID   domain.UserID
	settings domain.Settings
	members  []MemberSession // join order
	byUser   map[domain.UserID]MemberSession
	nextSeq  uint64
	closed   bool
}

// NewLobby creates a lobby with host as its only member and replies
// lobbyCreated to the host before anything else can reach it.
func NewLobby(id domain.LobbyID, name domain.LobbyName, host MemberSession, settings domain.Settings) (LobbyService, PublishResult) {
	l := &lobbyImpl{
		id:       id,
		name:     name,
		settings: settings,
		byUser:   make(map[domain.UserID]MemberSession),
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.addLocked(host)
	l.hostID = host.Meta().User.ID
	res := l.sendLocked(host.Signal(), protocol.LobbyEntered{
		Type:      protocol.TypeLobbyCreated,
		LobbyID:   l.id,
		UserID:    l.hostID,
		LobbyInfo: l.snapshotLocked(),
	})
	log.Info().Str("module", "core.lobby").Str("lobby", string(id)).Str("host", string(l.hostID)).Msg("lobby created")
	return l, res
}

func (l *lobbyImpl) ID() domain.LobbyID     { return l.id }
func (l *lobbyImpl) Name() domain.LobbyName { return l.name }

func (l *lobbyImpl) HostID() domain.UserID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hostID
}

func (l *lobbyImpl) MemberCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.members)
}

func (l *lobbyImpl) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *lobbyImpl) Snapshot() domain.LobbySnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *lobbyImpl) Listing() (domain.LobbyListing, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed || !l.settings.IsPublic {
		return domain.LobbyListing{}, false
	}
	return domain.LobbyListing{
		ID:          l.id,
		Name:        l.name,
		MemberCount: len(l.members),
		MaxUsers:    l.settings.MaxUsers,
	}, true
}

func (l *lobbyImpl) Join(ms MemberSession, password string) (domain.LobbySnapshot, PublishResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return domain.LobbySnapshot{}, PublishResult{}, domain.ErrNotFound
	}
	if !l.settings.IsPublic && subtle.ConstantTimeCompare([]byte(l.settings.Password), []byte(password)) != 1 {
		return domain.LobbySnapshot{}, PublishResult{}, domain.ErrForbidden
	}
	if len(l.members) >= l.settings.MaxUsers {
		return domain.LobbySnapshot{}, PublishResult{}, domain.ErrCapacity
	}

	uid := ms.Meta().User.ID
	l.addLocked(ms)
	snap := l.snapshotLocked()

	res := l.sendLocked(ms.Signal(), protocol.LobbyEntered{
		Type:      protocol.TypeJoinedLobby,
		LobbyID:   l.id,
		UserID:    uid,
		LobbyInfo: snap,
	})
	res.merge(l.fanoutLocked(uid, protocol.UserJoined{
		Type: protocol.TypeUserJoined,
		User: *ms.Meta().User,
	}))
	log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Str("user", string(uid)).Int("members", len(l.members)).Msg("member joined")
	return snap, res, nil
}

func (l *lobbyImpl) Leave(uid domain.UserID, notify bool) (LeaveResult, PublishResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ms, ok := l.byUser[uid]
	if !ok {
		return LeaveResult{}, PublishResult{}
	}
	delete(l.byUser, uid)
	l.members = slices.DeleteFunc(l.members, func(m MemberSession) bool { return m.Meta().User.ID == uid })
	out := LeaveResult{Removed: true}

	if notify {
		// The leaver is gone already; a full queue on its side is not our concern.
		_ = l.sendLocked(ms.Signal(), protocol.LeftLobby{Type: protocol.TypeLeftLobby, LobbyID: l.id})
	}

	if len(l.members) == 0 {
		l.closed = true
		out.Closed = true
		log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Msg("lobby closed")
		return out, PublishResult{}
	}

	res := l.fanoutLocked("", protocol.UserLeft{Type: protocol.TypeUserLeft, UserID: uid})
	if l.hostID == uid {
		l.hostID = l.members[0].Meta().User.ID
		out.NewHost = l.hostID
		res.merge(l.fanoutLocked("", protocol.NewHost{Type: protocol.TypeNewHost, HostID: l.hostID}))
		log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Str("host", string(l.hostID)).Msg("host migrated")
	}
	log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Str("user", string(uid)).Int("members", len(l.members)).Msg("member left")
	return out, res
}

func (l *lobbyImpl) UpdatePosition(uid domain.UserID, pos domain.Position) PublishResult {
	if !pos.IsFinite() {
		return PublishResult{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ms, ok := l.byUser[uid]
	if !ok || l.closed {
		return PublishResult{}
	}
	pos = pos.Clamp(l.settings.BoxSize)
	ms.Meta().User.Position = pos
	return l.fanoutLocked("", protocol.UserPositionUpdated{
		Type:     protocol.TypeUserPositionUpdated,
		UserID:   uid,
		Position: pos,
	})
}

func (l *lobbyImpl) UpdateOrientation(uid domain.UserID, orientation float64) PublishResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	ms, ok := l.byUser[uid]
	if !ok || l.closed {
		return PublishResult{}
	}
	orientation = domain.NormalizeOrientation(orientation)
	ms.Meta().User.Orientation = orientation
	return l.fanoutLocked("", protocol.UserOrientationUpdated{
		Type:        protocol.TypeUserOrientationUpdated,
		UserID:      uid,
		Orientation: orientation,
	})
}

func (l *lobbyImpl) UpdateSettings(uid domain.UserID, patch domain.SettingsPatch) (PublishResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return PublishResult{}, domain.ErrNotFound
	}
	if uid != l.hostID {
		return PublishResult{}, domain.ErrUnauthorized
	}
	merged, err := l.settings.Merge(patch, len(l.members))
	if err != nil {
		return PublishResult{}, err
	}
	l.settings = merged
	log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Interface("settings", merged.Public()).Msg("settings updated")
	return l.fanoutLocked("", protocol.LobbySettingsUpdated{
		Type:     protocol.TypeLobbySettingsUpdated,
		Settings: merged.Public(),
	}), nil
}

func (l *lobbyImpl) StartBoom(uid domain.UserID) (PublishResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return PublishResult{}, domain.ErrNotFound
	}
	if uid != l.hostID {
		return PublishResult{}, domain.ErrUnauthorized
	}
	log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Msg("boom voice on")
	return l.fanoutLocked(uid, protocol.HostBoomVoice{Type: protocol.TypeHostBoomVoice, Active: true, HostID: uid}), nil
}

// EndBoom does not check who the host is now: the revert belongs to the
// activation that scheduled it.
func (l *lobbyImpl) EndBoom(activator domain.UserID) PublishResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return PublishResult{}
	}
	log.Info().Str("module", "core.lobby").Str("lobby", string(l.id)).Msg("boom voice off")
	return l.fanoutLocked(activator, protocol.HostBoomVoice{Type: protocol.TypeHostBoomVoice, Active: false, HostID: activator})
}

func (l *lobbyImpl) addLocked(ms MemberSession) {
	meta := ms.Meta()
	l.nextSeq++
	meta.Seq = l.nextSeq
	l.members = append(l.members, ms)
	l.byUser[meta.User.ID] = ms
}

func (l *lobbyImpl) snapshotLocked() domain.LobbySnapshot {
	users := make([]domain.User, 0, len(l.members))
	for _, ms := range l.members {
		users = append(users, *ms.Meta().User)
	}
	return domain.LobbySnapshot{
		ID:       l.id,
		Name:     l.name,
		HostID:   l.hostID,
		Users:    users,
		Settings: l.settings.Public(),
	}
}

func (l *lobbyImpl) sendLocked(to SignalConnection, v any) PublishResult {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.lobby").Msg("marshal event")
		return PublishResult{}
	}
	if err := to.TrySend(data); err != nil {
		return PublishResult{Dropped: []SignalConnection{to}}
	}
	return PublishResult{SendTo: 1}
}

// fanoutLocked delivers v to every member but except. An empty except
// reaches everyone, the origin included.
func (l *lobbyImpl) fanoutLocked(except domain.UserID, v any) PublishResult {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.lobby").Msg("marshal event")
		return PublishResult{}
	}
	res := PublishResult{}
	for _, m := range l.members {
		if m.Meta().User.ID == except {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m.Signal())
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.lobby").Str("lobby", string(l.id)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
