package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/reset-server/internal/protocol"
)

// fakeClient is an in-memory transport.Client for tests: Send records
// messages, Run blocks until Close or ctx cancellation.
type fakeClient struct {
	mu     sync.Mutex
	sent   []any
	closed chan struct{}
	once   sync.Once
}

func newFakeClient() *fakeClient { return &fakeClient{closed: make(chan struct{})} }

func (c *fakeClient) Send(ctx context.Context, msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeClient) Run(ctx context.Context, handle func(any) error) error {
	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeClient) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeClient) Sent() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

type fakeProtocol struct {
	mu      sync.Mutex
	joined  []protocol.ClientID
	left    []protocol.ClientID
	handled []any
}

func (p *fakeProtocol) ClientJoined(id protocol.ClientID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joined = append(p.joined, id)
}

func (p *fakeProtocol) ClientLeft(id protocol.ClientID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left = append(p.left, id)
}

func (p *fakeProtocol) HandleMessage(ctx context.Context, from protocol.ClientID, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handled = append(p.handled, msg)
	return nil
}

func TestServerDispatchesToActiveProtocolAndTracksJoinLeave(t *testing.T) {
	s := New(nil)
	proto := &fakeProtocol{}
	s.SetProtocol(proto)

	fc := newFakeClient()
	done := make(chan error, 1)
	go func() { done <- s.HandleConn(context.Background(), fc) }()

	time.Sleep(20 * time.Millisecond)
	proto.mu.Lock()
	joinedCount := len(proto.joined)
	proto.mu.Unlock()
	assert.Equal(t, 1, joinedCount)

	require.NoError(t, fc.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleConn did not return after client closed")
	}

	proto.mu.Lock()
	defer proto.mu.Unlock()
	assert.Equal(t, 1, len(proto.left))
}

func TestServerBroadcastReachesEveryClient(t *testing.T) {
	s := New(nil)
	proto := &fakeProtocol{}
	s.SetProtocol(proto)

	a, b := newFakeClient(), newFakeClient()
	go s.HandleConn(context.Background(), a)
	go s.HandleConn(context.Background(), b)
	time.Sleep(20 * time.Millisecond)

	s.Broadcast(context.Background(), "hello")

	assert.Contains(t, a.Sent(), "hello")
	assert.Contains(t, b.Sent(), "hello")

	a.Close()
	b.Close()
}

func TestServerSetProtocolCancelsPreviousProtocolContext(t *testing.T) {
	s := New(nil)
	s.SetProtocol(&fakeProtocol{})
	first := s.ProtocolContext()

	s.SetProtocol(&fakeProtocol{})
	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("previous protocol context was not cancelled on SetProtocol")
	}
}
