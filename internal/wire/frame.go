// Package wire implements the length-prefixed binary framing used over
// TCP, and the client/server message set both the TCP and WebSocket
// transports carry (as a JSON-encoded payload in either case).
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's payload to guard against a
// corrupt or hostile length prefix forcing an unbounded allocation.
const MaxFrameSize = 1 << 20 // 1 MiB

// FrameTooLargeError reports a length prefix exceeding MaxFrameSize.
type FrameTooLargeError struct {
	Size int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("wire: frame of %d bytes exceeds max %d", e.Size, MaxFrameSize)
}

// ReadFrame reads one uint32_be length prefix followed by exactly that
// many bytes of payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, &FrameTooLargeError{Size: int(n)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload prefixed by its uint32_be length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return &FrameTooLargeError{Size: len(payload)}
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
