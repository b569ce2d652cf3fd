package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultSendBuffer is the outbound queue length of a client.
	DefaultSendBuffer = 32
)

var (
	// ErrClientClosed is returned by Deliver after the client is closed.
	ErrClientClosed = errors.New("client closed")
	// ErrSendBufferFull is returned by Deliver when the client is not
	// draining its queue fast enough.
	ErrSendBufferFull = errors.New("send buffer full")
)

var pongMessage, _ = json.Marshal(Event{Type: TypePong, Message: "Connection alive"})

// Client is a websocket subscriber.  Outbound messages are queued on a
// bounded channel drained by the write pump.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  logrus.FieldLogger
}

// NewClient wraps an upgraded connection.  buffer <= 0 uses
// DefaultSendBuffer.
func NewClient(conn *websocket.Conn, buffer int, log logrus.FieldLogger) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	id := uuid.NewString()
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		log:  log.WithField("subscriber", id),
	}
}

func (c *Client) ID() string { return c.id }

// Deliver queues msg without blocking.
func (c *Client) Deliver(msg []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the
// connection.  It is safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Serve registers the client with hub under storeID and pumps the
// connection until the peer goes away or the client is closed.
func (c *Client) Serve(hub *Hub, storeID uint64) error {
	if err := hub.Subscribe(storeID, c); err != nil {
		c.conn.Close()
		return err
	}
	defer func() {
		hub.Unsubscribe(storeID, c)
		c.Close()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()
	c.readPump()
	c.Close()
	<-writerDone
	return nil
}

// readPump answers every text frame with a pong event.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Info("websocket read")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.TextMessage {
			continue
		}
		if err := c.Deliver(pongMessage); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.WithError(err).Debug("websocket write")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
