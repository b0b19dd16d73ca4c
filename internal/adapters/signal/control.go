package signal

import "github.com/dkeye/ProximityVoice/internal/protocol"

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	ctl.sendJSON(c, protocol.SimpleRequest{Type: protocol.TypePong})
}

func (ctl *SignalWSController) handleWhoAmI(c *WsSignalConn) {
	ctl.sendJSON(c, ctl.Orch.WhoAmI(c.id))
}
