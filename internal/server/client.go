package server

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/relay"
)

const (
	writeWait = 10 * time.Second
	// closeGrace bounds how long Terminate waits for the write pump to send
	// a close frame before closing the socket itself.
	closeGrace = time.Second
)

// ClientConfig bounds a single connection's buffers.
type ClientConfig struct {
	SendQueueSize  int
	MaxMessageSize int64
}

// Client is one WebSocket connection. It implements relay.Peer: the hub
// queues frames and pings, and the client's own write pump puts them on
// the wire.
type Client struct {
	conn *websocket.Conn
	hub  *relay.Hub
	id   relay.ConnID
	addr string
	log  *zap.Logger

	// connLog carries conn_id and is only used by the pumps.
	connLog *zap.Logger

	send          chan []byte
	ping          chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
	connCloseOnce sync.Once
}

// NewClient wraps conn. The connection is not registered with the hub until
// Serve is called.
func NewClient(conn *websocket.Conn, hub *relay.Hub, addr string, cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	if conn != nil && cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn: conn,
		hub:  hub,
		addr: addr,
		log:  log.With(zap.String("addr", addr)),
		send: make(chan []byte, cfg.SendQueueSize),
		ping: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Send queues payload without blocking.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return relay.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return relay.ErrConnectionClosed
	default:
		return relay.ErrSendBufferFull
	}
}

// Ping asks the write pump to send a ping. A ping already pending absorbs
// this one.
func (c *Client) Ping() error {
	select {
	case <-c.done:
		return relay.ErrConnectionClosed
	default:
	}

	select {
	case c.ping <- struct{}{}:
	default:
	}
	return nil
}

// Terminate ends the connection. The write pump sends a normal close frame
// and closes the socket; if it has not done so within closeGrace the socket
// is closed anyway. The read pump then reports the disconnect to the hub.
func (c *Client) Terminate() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn == nil {
			return
		}
		time.AfterFunc(closeGrace, c.closeConn)
	})
}

func (c *Client) closeConn() {
	c.connCloseOnce.Do(func() {
		if c.conn == nil {
			return
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("close connection", zap.Error(err))
		}
	})
}

// Done is closed once the client has been terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Serve registers the client with the hub and runs both pumps until the
// connection ends.
func (c *Client) Serve() error {
	id, err := c.hub.Connect(c)
	if err != nil {
		c.Terminate()
		c.closeConn()
		return err
	}
	c.id = id
	c.connLog = c.log.With(zap.String("conn_id", string(id)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	c.readPump()
	wg.Wait()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.Terminate()
		if err := c.hub.Disconnect(c.id); err != nil && !errors.Is(err, relay.ErrHubStopped) {
			c.connLog.Warn("report disconnect", zap.Error(err))
		}
	}()

	c.conn.SetPongHandler(func(string) error {
		return c.hub.Pong(c.id)
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		if err := c.hub.Receive(c.id, raw); err != nil {
			return
		}
	}
}

// handleReadError logs the reason the read loop is ending.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.connLog.Warn("frame exceeded maximum size", zap.Error(err))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.connLog.Debug("client closed connection", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.connLog.Debug("connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.connLog.Warn("unexpected close", zap.Error(err))
	default:
		c.connLog.Debug("read error", zap.Error(err))
	}
}

func (c *Client) writePump() {
	defer func() {
		c.Terminate()
		c.closeConn()
	}()

	for {
		select {
		case <-c.done:
			c.writeCloseMessage()
			return
		case message := <-c.send:
			if !c.writeTextMessage(message) {
				return
			}
		case <-c.ping:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeTextMessage writes one envelope as its own text frame.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.connLog.Debug("set write deadline", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.connLog.Debug("write message", zap.Error(err))
		}
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.connLog.Debug("set write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.connLog.Debug("write ping", zap.Error(err))
		}
		return false
	}
	return true
}

func (c *Client) writeCloseMessage() {
	deadline := time.Now().Add(closeGrace)
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	if err != nil && !isExpectedCloseError(err) && !errors.Is(err, websocket.ErrCloseSent) {
		c.connLog.Debug("write close message", zap.Error(err))
	}
}
