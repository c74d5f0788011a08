package transport

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

// Disconnected reports that a client's connection ended because the peer
// closed it (or the network reset), as opposed to a protocol-level
// decoding failure (wire.CodecError) or frame-size violation
// (wire.FrameTooLargeError). Callers that only care about "did the
// session end normally" can match on this instead of the underlying
// net/websocket error.
type Disconnected struct {
	Err error
}

func (e *Disconnected) Error() string {
	return "transport: client disconnected: " + e.Err.Error()
}

func (e *Disconnected) Unwrap() error { return e.Err }

// wrapReadErr classifies a Run-loop read error, wrapping the ones that
// genuinely mean "the peer went away" as Disconnected so callers don't
// have to know the difference between a TCP EOF and a WebSocket close
// frame. Any other error (codec failures, oversized frames) passes
// through unchanged.
func wrapReadErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return &Disconnected{Err: err}
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	) {
		return &Disconnected{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		return &Disconnected{Err: err}
	}
	return err
}
