package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/ProximityVoice/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.pingPeriod > 0 {
		ticker := time.NewTicker(ctl.pingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("cid", c.id.Short()).Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("cid", c.id.Short()).Msg("writePump ping")
				c.Close()
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("cid", c.id.Short()).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("cid", c.id.Short()).Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	stop := context.AfterFunc(ctx, c.Close)
	defer func() {
		stop()
		log.Info().Str("module", "signal").Str("cid", c.id.Short()).Msg("readPump closing")
		ctl.Orch.OnDisconnect(c.id)
		cancel()
		c.Close()
	}()

	if ctl.pingPeriod > 0 {
		pongWait := ctl.pingPeriod * 10 / 9
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("cid", c.id.Short()).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(c, data)
	}
}

func (ctl *SignalWSController) handleSignal(c *WsSignalConn, data []byte) {
	typ, err := protocol.PeekType(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch typ {
	case protocol.TypeCreateLobby:
		ctl.handleCreateLobby(c, data)
	case protocol.TypeGetLobbies:
		ctl.handleGetLobbies(c)
	case protocol.TypeJoinLobby:
		ctl.handleJoinLobby(c, data)
	case protocol.TypeLeaveLobby:
		ctl.handleLeaveLobby(c, data)
	case protocol.TypeUpdatePosition:
		ctl.handleUpdatePosition(c, data)
	case protocol.TypeUpdateOrientation:
		ctl.handleUpdateOrientation(c, data)
	case protocol.TypeUpdateLobbySettings:
		ctl.handleUpdateSettings(c, data)
	case protocol.TypeBoomVoice:
		ctl.handleBoomVoice(c, data)
	case protocol.TypeRTCOffer, protocol.TypeRTCAnswer, protocol.TypeRTCIceCandidate:
		ctl.handleRelay(c, data)
	case protocol.TypePing:
		ctl.handlePing(c)
	case protocol.TypeWhoAmI:
		ctl.handleWhoAmI(c)
	default:
		log.Warn().Str("module", "signal").Str("type", typ).Msg("unknown signal")
	}
}

// decode logs and drops a malformed payload.
func decode(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("cid", c.id.Short()).Msg("sendJSON dropped")
	}
}
