package signal

import (
	"errors"

	"github.com/dkeye/ProximityVoice/internal/domain"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// errorMessage maps a failure onto the text the client sees.
func errorMessage(err error) string {
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrCapacity,
		domain.ErrUnauthorized,
		domain.ErrInvalidSettings,
		domain.ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, err error) {
	ctl.sendJSON(c, protocol.Error{Type: protocol.TypeError, Message: errorMessage(err)})
}

// allow applies the per-browser limit to lobby creation and joins.
func (ctl *SignalWSController) allow(c *WsSignalConn) bool {
	if ctl.Limiter == nil {
		return true
	}
	key := ctl.Orch.Registry.TokenOf(c.id)
	if key == "" {
		key = string(c.id)
	}
	return ctl.Limiter.Allow(key)
}

func (ctl *SignalWSController) handleCreateLobby(c *WsSignalConn, data []byte) {
	if !ctl.allow(c) {
		ctl.sendError(c, domain.ErrRateLimited)
		return
	}
	var p protocol.CreateLobbyRequest
	if !decode(data, &p) {
		return
	}
	if _, _, err := ctl.Orch.CreateLobby(c.id, p.Username, domain.LobbyName(p.LobbyName), p.Password); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", c.id.Short()).Msg("create lobby")
		ctl.sendError(c, err)
	}
}

func (ctl *SignalWSController) handleGetLobbies(c *WsSignalConn) {
	ctl.sendJSON(c, protocol.LobbiesUpdated{
		Type:    protocol.TypeLobbiesUpdated,
		Lobbies: ctl.Orch.PublicLobbies(),
	})
}

func (ctl *SignalWSController) handleJoinLobby(c *WsSignalConn, data []byte) {
	if !ctl.allow(c) {
		ctl.sendError(c, domain.ErrRateLimited)
		return
	}
	var p protocol.JoinLobbyRequest
	if !decode(data, &p) {
		return
	}
	if _, err := ctl.Orch.JoinLobby(c.id, p.LobbyID, p.Username, p.Password); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("cid", c.id.Short()).Str("lobby", string(p.LobbyID)).Msg("join rejected")
		ctl.sendError(c, err)
	}
}

func (ctl *SignalWSController) handleLeaveLobby(c *WsSignalConn, data []byte) {
	var p protocol.LeaveLobbyRequest
	if !decode(data, &p) {
		return
	}
	ctl.Orch.LeaveLobby(c.id, p.LobbyID)
}

func (ctl *SignalWSController) handleUpdatePosition(c *WsSignalConn, data []byte) {
	var p protocol.UpdatePositionRequest
	if !decode(data, &p) {
		return
	}
	ctl.Orch.UpdatePosition(c.id, p.LobbyID, p.Position)
}

func (ctl *SignalWSController) handleUpdateOrientation(c *WsSignalConn, data []byte) {
	var p protocol.UpdateOrientationRequest
	if !decode(data, &p) {
		return
	}
	ctl.Orch.UpdateOrientation(c.id, p.LobbyID, p.Orientation)
}

func (ctl *SignalWSController) handleUpdateSettings(c *WsSignalConn, data []byte) {
	var p protocol.UpdateLobbySettingsRequest
	if !decode(data, &p) {
		return
	}
	if err := ctl.Orch.UpdateSettings(c.id, p.LobbyID, p.Settings); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *SignalWSController) handleBoomVoice(c *WsSignalConn, data []byte) {
	var p protocol.BoomVoiceRequest
	if !decode(data, &p) {
		return
	}
	if err := ctl.Orch.BoomVoice(c.id, p.LobbyID); err != nil {
		ctl.sendError(c, err)
	}
}
