// Package client is a headless participant: it mirrors one lobby, decides
// which voice links must exist and drives them through a Transport.
package client

//go:generate mockgen -destination=mock_transport_test.go -package=client . Transport,TransportFactory

import (
	"encoding/json"

	"github.com/dkeye/ProximityVoice/internal/domain"
)

type Role int

const (
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// RoleFor is symmetric: exactly one side of a pair initiates.
func RoleFor(self, peer domain.UserID) Role {
	if self < peer {
		return Initiator
	}
	return Responder
}

type LinkState int

const (
	Negotiating LinkState = iota
	Connected
	Closed
)

func (s LinkState) String() string {
	switch s {
	case Negotiating:
		return "negotiating"
	case Connected:
		return "connected"
	}
	return "closed"
}

// Transport is one peer-to-peer voice link. Implementations must not block
// and must not call back into LinkEvents from inside these methods.
type Transport interface {
	// Start begins negotiation; responders just wait for the offer.
	Start() error
	// HandleSignal feeds a remote offer, answer or candidate.
	HandleSignal(kind string, payload json.RawMessage) error
	SetVolume(v float64)
	Close() error
}

// LinkEvents is how a transport reports back to its link manager.
type LinkEvents interface {
	// Signal asks for a negotiation message to be relayed to the peer.
	Signal(kind string, payload json.RawMessage)
	Connected()
	Closed(err error)
}

type TransportFactory interface {
	NewTransport(peer domain.UserID, role Role, events LinkEvents) (Transport, error)
}

// Signaler relays negotiation messages through the signal server.
type Signaler interface {
	SendSignal(kind string, target domain.UserID, payload json.RawMessage) error
}

// RemoteAudio is an incoming voice stream.
type RemoteAudio interface {
	Codec() string
	// Read blocks for the next encoded frame.
	Read() ([]byte, error)
}

// Playback renders remote voices. Volume is in [0, 1].
type Playback interface {
	Attach(peer domain.UserID, audio RemoteAudio)
	SetVolume(peer domain.UserID, v float64)
	Detach(peer domain.UserID)
}

// Preferences survive between runs.
type Preferences interface {
	Username() string
	SetUsername(string)
	Sensitivity() float64
	SetSensitivity(float64)
}
