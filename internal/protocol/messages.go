// Package protocol defines the JSON messages exchanged over the signal
// WebSocket. Every message is a flat object tagged by "type".
package protocol

import (
	"encoding/json"

	"github.com/dkeye/ProximityVoice/internal/domain"
)

// Client to server.
const (
	TypeCreateLobby         = "createLobby"
	TypeGetLobbies          = "getLobbies"
	TypeJoinLobby           = "joinLobby"
	TypeLeaveLobby          = "leaveLobby"
	TypeUpdatePosition      = "updatePosition"
	TypeUpdateOrientation   = "updateOrientation"
	TypeUpdateLobbySettings = "updateLobbySettings"
	TypeBoomVoice           = "boomVoice"
	TypePing                = "ping"
	TypeWhoAmI              = "whoami"
)

// Peer negotiation, relayed in both directions.
const (
	TypeRTCOffer        = "rtc-offer"
	TypeRTCAnswer       = "rtc-answer"
	TypeRTCIceCandidate = "rtc-ice-candidate"
)

// Server to client.
const (
	TypeLobbyCreated           = "lobbyCreated"
	TypeJoinedLobby            = "joinedLobby"
	TypeLeftLobby              = "leftLobby"
	TypeLobbiesUpdated         = "lobbiesUpdated"
	TypeUserJoined             = "userJoined"
	TypeUserLeft               = "userLeft"
	TypeNewHost                = "newHost"
	TypeLobbySettingsUpdated   = "lobbySettingsUpdated"
	TypeUserPositionUpdated    = "userPositionUpdated"
	TypeUserOrientationUpdated = "userOrientationUpdated"
	TypeHostBoomVoice          = "hostBoomVoice"
	TypeError                  = "error"
	TypePong                   = "pong"
)

// IsRTC reports whether t is one of the relayed negotiation kinds.
func IsRTC(t string) bool {
	switch t {
	case TypeRTCOffer, TypeRTCAnswer, TypeRTCIceCandidate:
		return true
	}
	return false
}

type Envelope struct {
	Type string `json:"type"`
}

// PeekType reads only the discriminator.
func PeekType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

type CreateLobbyRequest struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	LobbyName string `json:"lobbyName"`
	Password  string `json:"password,omitempty"`
}

type JoinLobbyRequest struct {
	Type     string         `json:"type"`
	Username string         `json:"username"`
	LobbyID  domain.LobbyID `json:"lobbyId"`
	Password string         `json:"password,omitempty"`
}

type LeaveLobbyRequest struct {
	Type    string         `json:"type"`
	LobbyID domain.LobbyID `json:"lobbyId"`
}

type UpdatePositionRequest struct {
	Type     string          `json:"type"`
	LobbyID  domain.LobbyID  `json:"lobbyId"`
	Position domain.Position `json:"position"`
}

type UpdateOrientationRequest struct {
	Type        string         `json:"type"`
	LobbyID     domain.LobbyID `json:"lobbyId"`
	Orientation float64        `json:"orientation"`
}

type UpdateLobbySettingsRequest struct {
	Type     string               `json:"type"`
	LobbyID  domain.LobbyID       `json:"lobbyId"`
	Settings domain.SettingsPatch `json:"settings"`
}

type BoomVoiceRequest struct {
	Type    string         `json:"type"`
	LobbyID domain.LobbyID `json:"lobbyId"`
}

type SimpleRequest struct {
	Type string `json:"type"`
}

// RTCRequest is sent by a peer; the payload stays opaque.
type RTCRequest struct {
	Type         string          `json:"type"`
	TargetUserID domain.UserID   `json:"targetUserId"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// RTCRelayed is what the target receives.
type RTCRelayed struct {
	Type       string          `json:"type"`
	FromUserID domain.UserID   `json:"fromUserId"`
	SDP        json.RawMessage `json:"sdp,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

// Payload returns whichever opaque field the message carries.
func (m RTCRelayed) Payload() json.RawMessage {
	if m.Type == TypeRTCIceCandidate {
		return m.Candidate
	}
	return m.SDP
}

type LobbyEntered struct {
	Type      string               `json:"type"`
	LobbyID   domain.LobbyID       `json:"lobbyId"`
	UserID    domain.UserID        `json:"userId"`
	LobbyInfo domain.LobbySnapshot `json:"lobbyInfo"`
}

type LeftLobby struct {
	Type    string         `json:"type"`
	LobbyID domain.LobbyID `json:"lobbyId"`
}

type LobbiesUpdated struct {
	Type    string                `json:"type"`
	Lobbies []domain.LobbyListing `json:"lobbies"`
}

type UserJoined struct {
	Type string      `json:"type"`
	User domain.User `json:"user"`
}

type UserLeft struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type NewHost struct {
	Type   string        `json:"type"`
	HostID domain.UserID `json:"hostId"`
}

type LobbySettingsUpdated struct {
	Type     string                `json:"type"`
	Settings domain.PublicSettings `json:"settings"`
}

type UserPositionUpdated struct {
	Type     string          `json:"type"`
	UserID   domain.UserID   `json:"userId"`
	Position domain.Position `json:"position"`
}

type UserOrientationUpdated struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	Orientation float64       `json:"orientation"`
}

type HostBoomVoice struct {
	Type   string        `json:"type"`
	Active bool          `json:"active"`
	HostID domain.UserID `json:"hostId"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type WhoAmI struct {
	Type    string         `json:"type"`
	ConnID  string         `json:"connId"`
	UserID  domain.UserID  `json:"userId,omitempty"`
	LobbyID domain.LobbyID `json:"lobbyId,omitempty"`
}
