package core

import (
	"github.com/dkeye/ProximityVoice/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SignalConnection
}

func (r *PublishResult) merge(o PublishResult) {
	r.SendTo += o.SendTo
	r.Dropped = append(r.Dropped, o.Dropped...)
}

// LeaveResult describes what a removal did to the lobby.
type LeaveResult struct {
	Removed bool
	NewHost domain.UserID
	Closed  bool
}

// LobbyService is the core-facing API of a lobby.
// Every mutating call is serialized and enqueues its events while still
// holding the lobby lock, so members observe one linear history.
type LobbyService interface {
	ID() domain.LobbyID
	Name() domain.LobbyName
	HostID() domain.UserID
	MemberCount() int
	Closed() bool
	Snapshot() domain.LobbySnapshot
	// Listing returns the public row and whether the lobby is listed at all.
	Listing() (domain.LobbyListing, bool)

	Join(ms MemberSession, password string) (domain.LobbySnapshot, PublishResult, error)
	Leave(uid domain.UserID, notify bool) (LeaveResult, PublishResult)
	UpdatePosition(uid domain.UserID, pos domain.Position) PublishResult
	UpdateOrientation(uid domain.UserID, orientation float64) PublishResult
	UpdateSettings(uid domain.UserID, patch domain.SettingsPatch) (PublishResult, error)
	StartBoom(uid domain.UserID) (PublishResult, error)
	EndBoom(activator domain.UserID) PublishResult
}

// LobbyManager owns the lobby collection.
type LobbyManager interface {
	// Create opens a lobby with host as its first member. The lobbyCreated
	// reply is already queued when Create returns.
	Create(name domain.LobbyName, host MemberSession, settings domain.Settings) (LobbyService, PublishResult)
	Get(id domain.LobbyID) (LobbyService, bool)
	// Remove drops l if it is still the lobby registered under its id.
	Remove(l LobbyService)
	Count() int
	// PublicListing lists open public lobbies sorted by name, then id.
	PublicListing() []domain.LobbyListing
}
