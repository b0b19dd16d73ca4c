package signal

import "github.com/dkeye/ProximityVoice/internal/protocol"

// handleRelay forwards offers, answers and candidates verbatim. The sender
// gets no feedback either way.
func (ctl *SignalWSController) handleRelay(c *WsSignalConn, data []byte) {
	var p protocol.RTCRequest
	if !decode(data, &p) {
		return
	}
	ctl.Orch.Relay(c.id, p)
}
