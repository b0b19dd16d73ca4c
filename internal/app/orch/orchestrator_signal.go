package orch

import (
	"encoding/json"

	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Relay forwards one negotiation message to a member of the sender's lobby.
// Undeliverable messages are logged and dropped; the sender is never told.
func (o *Orchestrator) Relay(cid core.ConnID, req protocol.RTCRequest) bool {
	if !protocol.IsRTC(req.Type) {
		log.Warn().Str("module", "app.orch").Str("type", req.Type).Msg("relay of unknown kind")
		return false
	}
	lobbyID, from, ok := o.Registry.LobbyOf(cid)
	if !ok {
		return false
	}
	target, targetLobby, ok := o.Registry.ConnOfUser(req.TargetUserID)
	if !ok || targetLobby != lobbyID || req.TargetUserID == from {
		o.undeliverable(req, "unknown target")
		return false
	}

	data, err := json.Marshal(protocol.RTCRelayed{
		Type:       req.Type,
		FromUserID: from,
		SDP:        req.SDP,
		Candidate:  req.Candidate,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("marshal relay")
		return false
	}
	if err := target.TrySend(data); err != nil {
		o.undeliverable(req, "target congested")
		lobby, _ := o.Lobbies.Get(lobbyID)
		o.handlePublish(lobby, core.PublishResult{Dropped: []core.SignalConnection{target}})
		return false
	}
	o.Metrics.Relayed(req.Type)
	log.Debug().Str("module", "app.orch").Str("kind", req.Type).Str("from", string(from)).Str("to", string(req.TargetUserID)).Msg("relayed")
	return true
}

func (o *Orchestrator) undeliverable(req protocol.RTCRequest, reason string) {
	o.Metrics.Undeliverable()
	log.Debug().Str("module", "app.orch").Str("kind", req.Type).Str("to", string(req.TargetUserID)).Str("reason", reason).Msg("relay dropped")
}
