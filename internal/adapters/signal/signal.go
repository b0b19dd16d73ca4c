package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/ProximityVoice/internal/app/orch"
	"github.com/dkeye/ProximityVoice/internal/config"
	"github.com/dkeye/ProximityVoice/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *RoomRateLimiter

	readLimit  int64
	pingPeriod time.Duration
	sendBuffer int
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		Limiter:    NewRoomRateLimiter(cfg.RateLimit.Count, cfg.RateLimit.Interval),
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		sendBuffer: cfg.SendBuffer,
	}
}

type WsSignalConn struct {
	id   core.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) ID() core.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	conn := &WsSignalConn{
		id:   core.NewConnID(),
		conn: ws,
		send: make(chan core.Frame, ctl.sendBuffer),
	}
	log.Info().Str("module", "signal").Str("cid", conn.id.Short()).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.OnConnect(conn, token, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
