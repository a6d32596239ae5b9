package network

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// maxMessageSize is the largest frame accepted from a peer. A CHAIN
	// message carries the whole chain.
	maxMessageSize = 32 << 20
)

// Set of errors returned when a message can't be queued.
var (
	ErrConnClosed  = errors.New("connection closed")
	ErrNotWritable = errors.New("connection send queue is full")
)

// =============================================================================

// wsConn implements the peer.Conn interface on top of a websocket. Writes
// are queued and performed by a dedicated goroutine so Send never blocks.
type wsConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// newWSConn constructs a connection with a send queue of the specified size.
func newWSConn(ws *websocket.Conn, queue int) *wsConn {
	if queue < 1 {
		queue = 1
	}

	return &wsConn{
		ws:   ws,
		send: make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

// Send queues the data for writing without blocking.
func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrNotWritable
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})

	return err
}

// writeLoop writes queued messages and pings the peer at the interval. A
// zero interval turns pings off.
func (c *wsConn) writeLoop(pingInterval time.Duration) {
	var ping <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}

		case <-ping:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			return
		}
	}
}

// readLoop reads frames until the connection fails. Every frame is handed
// to onMessage, every pong to onPong. onClose is called once on exit.
func (c *wsConn) readLoop(onMessage func(data []byte), onPong func(), onClose func(err error)) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		onPong()
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.Close()
			onClose(err)
			return
		}

		onMessage(data)
	}
}
