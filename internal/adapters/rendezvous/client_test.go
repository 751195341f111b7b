package rendezvous

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/core/coretest"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	*coretest.Connection
	sendAnswer func(string) error

	mu       sync.Mutex
	accepted string
	hooks    []func()
	once     sync.Once
}

func (f *fakeConn) Answer(ctx context.Context, local core.TrackBundle) error {
	if err := f.Connection.Answer(ctx, local); err != nil {
		return err
	}
	return f.sendAnswer("answer-sdp")
}

func (f *fakeConn) AcceptAnswer(sdp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = sdp
	return nil
}

func (f *fakeConn) OnClosed(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, fn)
}

func (f *fakeConn) Close() error {
	err := f.Connection.Close()
	f.once.Do(func() {
		f.mu.Lock()
		hooks := f.hooks
		f.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
	})
	return err
}

func (f *fakeConn) Accepted() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted
}

type fakeFactory struct {
	mu       sync.Mutex
	incoming []*fakeConn
}

func (f *fakeFactory) Offer(_ context.Context, peer domain.ParticipantID, _ string, _ core.TrackBundle) (Conn, string, error) {
	return &fakeConn{Connection: coretest.NewConnection(peer)}, "offer-sdp", nil
}

func (f *fakeFactory) Incoming(peer domain.ParticipantID, _ string, offerSDP string, sendAnswer func(string) error) (Conn, error) {
	c := &fakeConn{Connection: coretest.NewConnection(peer), sendAnswer: sendAnswer}
	f.mu.Lock()
	f.incoming = append(f.incoming, c)
	f.mu.Unlock()
	return c, nil
}

func newBroker(t *testing.T) (*signal.Broker, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	broker := signal.NewBroker(signal.Options{ReadLimit: 1 << 16})
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { broker.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		broker.CloseAll()
		cancel()
		srv.Close()
	})
	return broker, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func openClient(t *testing.T, url string, f ConnFactory) (*Client, domain.ParticipantID) {
	t.Helper()
	c := NewClient(Options{URL: url}, f)
	t.Cleanup(func() { _ = c.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := c.Open(ctx)
	require.NoError(t, err)
	return c, id
}

func TestOpenAllocatesID(t *testing.T) {
	broker, url := newBroker(t)
	c, id := openClient(t, url, &fakeFactory{})
	assert.NotEmpty(t, id)
	assert.Eventually(t, func() bool { return broker.Online(id) }, time.Second, 10*time.Millisecond)

	again, err := c.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestCallBeforeOpen(t *testing.T) {
	c := NewClient(Options{URL: "ws://127.0.0.1:1/ws"}, &fakeFactory{})
	_, err := c.Call(context.Background(), "someone", core.TrackBundle{})
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestCallAnsweredAndHungUp(t *testing.T) {
	_, url := newBroker(t)
	callerFactory, calleeFactory := &fakeFactory{}, &fakeFactory{}
	caller, callerID := openClient(t, url, callerFactory)
	callee, calleeID := openClient(t, url, calleeFactory)

	got := make(chan core.ConnectionHandle, 1)
	callee.OnIncomingConnection(func(h core.ConnectionHandle) {
		assert.NoError(t, h.Answer(context.Background(), core.TrackBundle{}))
		got <- h
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := caller.Call(ctx, calleeID, core.TrackBundle{})
	require.NoError(t, err)
	assert.Equal(t, calleeID, h.Peer())
	assert.Equal(t, "answer-sdp", h.(*fakeConn).Accepted())

	var in core.ConnectionHandle
	select {
	case in = <-got:
	case <-time.After(time.Second):
		t.Fatal("callee never saw the call")
	}
	assert.Equal(t, callerID, in.Peer())

	require.NoError(t, h.Close())
	assert.Eventually(t, func() bool { return in.(*fakeConn).Closed() }, 2*time.Second, 10*time.Millisecond)
}

func TestCallUnknownPeer(t *testing.T) {
	_, url := newBroker(t)
	c, _ := openClient(t, url, &fakeFactory{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Call(ctx, "nobody-here", core.TrackBundle{})
	assert.ErrorIs(t, err, ErrPeerUnavailable)
}

func TestIncomingWithoutHandlerIsClosed(t *testing.T) {
	_, url := newBroker(t)
	callee := &fakeFactory{}
	caller, _ := openClient(t, url, &fakeFactory{})
	_, calleeID := openClient(t, url, callee)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := caller.Call(ctx, calleeID, core.TrackBundle{})
	assert.ErrorIs(t, err, ErrRejected)

	callee.mu.Lock()
	defer callee.mu.Unlock()
	require.Len(t, callee.incoming, 1)
	assert.True(t, callee.incoming[0].Closed())
}

func TestCloseEndsCalls(t *testing.T) {
	_, url := newBroker(t)
	calleeFactory := &fakeFactory{}
	caller, _ := openClient(t, url, &fakeFactory{})
	callee, calleeID := openClient(t, url, calleeFactory)
	callee.OnIncomingConnection(func(h core.ConnectionHandle) {
		_ = h.Answer(context.Background(), core.TrackBundle{})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := caller.Call(ctx, calleeID, core.TrackBundle{})
	require.NoError(t, err)

	require.NoError(t, caller.Close())
	require.NoError(t, caller.Close())
	assert.True(t, h.(*fakeConn).Closed())

	_, err = caller.Call(ctx, calleeID, core.TrackBundle{})
	assert.ErrorIs(t, err, ErrClosed)
}
