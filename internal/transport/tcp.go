package transport

import (
	"context"
	"net"
	"sync"

	"github.com/juan10024/reset-server/internal/wire"
)

// outboundBuffer is how many pending outbound messages a client may
// queue before Send starts blocking the caller.
const outboundBuffer = 64

// TcpClient adapts wire framing onto a raw net.Conn, pairing a dedicated
// writer goroutine (draining an outbound channel in FIFO order, mirroring
// the teacher's Hub writePump) with blocking reads driven by Run.
type TcpClient struct {
	conn net.Conn

	outbound chan []byte
	writeErr chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTCPClient wraps conn and starts its writer goroutine.
func NewTCPClient(conn net.Conn) *TcpClient {
	c := &TcpClient{
		conn:     conn,
		outbound: make(chan []byte, outboundBuffer),
		writeErr: make(chan error, 1),
		closed:   make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *TcpClient) writeLoop() {
	for {
		select {
		case payload, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := wire.WriteFrame(c.conn, payload); err != nil {
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

// Send encodes msg and enqueues its frame, blocking until there is room
// in the outbound buffer or ctx is done.
func (c *TcpClient) Send(ctx context.Context, msg any) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	select {
	case c.outbound <- data:
		return nil
	case err := <-c.writeErr:
		return err
	case <-c.closed:
		return net.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reads frames until the connection closes or ctx is cancelled.
func (c *TcpClient) Run(ctx context.Context, handle func(any) error) error {
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		payload, err := wire.ReadFrame(c.conn)
		if err != nil {
			return wrapReadErr(err)
		}
		msg, err := wire.Decode(payload)
		if err != nil {
			return err
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}

// Close closes the underlying connection and stops the writer goroutine.
func (c *TcpClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		close(c.outbound)
		err = c.conn.Close()
	})
	return err
}
