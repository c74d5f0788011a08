package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/reset-server/internal/wire"
)

func TestTCPClientSendAndRunRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	sc := NewTCPClient(server)
	defer sc.Close()
	cc := NewTCPClient(client)
	defer cc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan any, 1)
	go func() {
		_ = cc.Run(ctx, func(msg any) error {
			received <- msg
			return nil
		})
	}()

	require.NoError(t, sc.Send(ctx, wire.CmdJoin{Name: "alice"}))

	select {
	case msg := <-received:
		join, ok := msg.(*wire.CmdJoin)
		require.True(t, ok)
		assert.Equal(t, "alice", join.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestTCPClientRunStopsOnClose(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	sc := NewTCPClient(server)
	cc := NewTCPClient(client)
	defer cc.Close()

	done := make(chan error, 1)
	go func() {
		done <- sc.Run(context.Background(), func(any) error { return nil })
	}()

	require.NoError(t, cc.Close())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after peer closed")
	}
}
