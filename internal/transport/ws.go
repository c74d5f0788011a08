package transport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/juan10024/reset-server/internal/wire"
)

// WsClient adapts wire messages onto a gorilla/websocket connection as
// JSON text frames — the WebSocket framing already delimits messages, so
// no length prefix is needed here (unlike TcpClient).
type WsClient struct {
	conn *websocket.Conn

	outbound chan any
	writeErr chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWSClient wraps conn and starts its writer goroutine.
func NewWSClient(conn *websocket.Conn) *WsClient {
	c := &WsClient{
		conn:     conn,
		outbound: make(chan any, outboundBuffer),
		writeErr: make(chan error, 1),
		closed:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *WsClient) writeLoop() {
	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			data, err := wire.Encode(msg)
			if err != nil {
				select {
				case c.writeErr <- err:
				default:
				}
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				select {
				case c.writeErr <- err:
				default:
				}
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Send enqueues msg for delivery, blocking until there is room or ctx is
// done.
func (c *WsClient) Send(ctx context.Context, msg any) error {
	select {
	case c.outbound <- msg:
		return nil
	case err := <-c.writeErr:
		return err
	case <-c.closed:
		return websocket.ErrCloseSent
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reads text frames until the connection closes or ctx is cancelled.
func (c *WsClient) Run(ctx context.Context, handle func(any) error) error {
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return wrapReadErr(err)
		}
		msg, err := wire.Decode(data)
		if err != nil {
			return err
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection and stops the writer goroutine.
func (c *WsClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		close(c.outbound)
		err = c.conn.Close()
	})
	return err
}
