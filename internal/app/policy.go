package app

import "github.com/dkeye/ProximityVoice/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose queue is full.
// lobby is nil for deliveries outside any lobby, such as the listing.
type Policy interface {
	OnBackPressure(lobby core.LobbyService, conn core.SignalConnection) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(lobby core.LobbyService, conn core.SignalConnection) BackpressureAction {
	return KickMember
}

// LenientPolicy only drops the frame; useful when clients are expected to
// catch up from the next snapshot.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(lobby core.LobbyService, conn core.SignalConnection) BackpressureAction {
	return DropFrame
}
