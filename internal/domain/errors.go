package domain

import "errors"

// Lobby level failures reported back to the originating connection only.
var (
	ErrNotFound        = errors.New("lobby not found")
	ErrForbidden       = errors.New("incorrect password")
	ErrCapacity        = errors.New("lobby is full")
	ErrUnauthorized    = errors.New("not authorized")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrRateLimited     = errors.New("too many requests")
)

// ErrPeerNegotiation stays inside the client link manager.
var ErrPeerNegotiation = errors.New("peer negotiation failed")
