package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Conn is the client end of the signal WebSocket.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Dial connects to the signal endpoint, e.g. ws://host:8080/api/ws/signal.
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c, nil
}

// Send queues v as one JSON text frame without blocking.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

// ReadLoop hands every inbound frame to fn until the connection drops or
// ctx is done.
func (c *Conn) ReadLoop(ctx context.Context, fn func([]byte)) error {
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(data)
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "client.conn").Msg("set write deadline")
				c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "client.conn").Msg("write")
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.ws.Close()
}
