// Package rendezvous implements core.Rendezvous against the signaling broker.
package rendezvous

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed          = errors.New("rendezvous closed")
	ErrNotOpen         = errors.New("rendezvous not open")
	ErrPeerUnavailable = errors.New("peer unavailable")
	ErrRejected        = errors.New("call rejected")
	ErrBadHandshake    = errors.New("unexpected first message")
)

type Options struct {
	URL       string
	Header    http.Header
	PingEvery time.Duration
	// OpenTimeout bounds the wait for the id when ctx has no deadline.
	OpenTimeout time.Duration
}

type call struct {
	conn  Conn
	reply chan signal.Message
}

type Client struct {
	opts    Options
	factory ConnFactory

	mu      sync.Mutex
	ws      *websocket.Conn
	id      domain.ParticipantID
	handler func(core.ConnectionHandle)
	calls   map[string]*call
	send    chan []byte
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
}

var _ core.Rendezvous = (*Client)(nil)

func NewClient(opts Options, factory ConnFactory) *Client {
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 10 * time.Second
	}
	return &Client{
		opts:    opts,
		factory: factory,
		calls:   make(map[string]*call),
		send:    make(chan []byte, 32),
		done:    make(chan struct{}),
	}
}

// Open connects to the broker and waits for our participant id.
func (c *Client) Open(ctx context.Context) (domain.ParticipantID, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.ws != nil {
		id := c.id
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.OpenTimeout)
	}
	_ = ws.SetReadDeadline(deadline)
	var first signal.Message
	if err := ws.ReadJSON(&first); err != nil {
		_ = ws.Close()
		return "", fmt.Errorf("read open: %w", err)
	}
	_ = ws.SetReadDeadline(time.Time{})
	if first.Type != signal.TypeOpen {
		_ = ws.Close()
		return "", fmt.Errorf("%w: %q", ErrBadHandshake, first.Type)
	}
	id, err := domain.ParseParticipantID(first.ID)
	if err != nil {
		_ = ws.Close()
		return "", fmt.Errorf("open id: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return "", ErrClosed
	}
	c.ws, c.id = ws, id
	c.mu.Unlock()

	go c.writePump(ws)
	go c.readPump(ws)
	log.Info().Str("module", "rendezvous").Str("id", string(id)).Msg("open")
	return id, nil
}

func (c *Client) OnIncomingConnection(handler func(core.ConnectionHandle)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Call offers a connection to remote and waits for its answer.
func (c *Client) Call(ctx context.Context, remote domain.ParticipantID, local core.TrackBundle) (core.ConnectionHandle, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	callID := uuid.NewString()
	conn, sdp, err := c.factory.Offer(ctx, remote, callID, local)
	if err != nil {
		return nil, fmt.Errorf("offer: %w", err)
	}
	cl := &call{conn: conn, reply: make(chan signal.Message, 1)}
	c.track(callID, cl, remote)

	if err := c.write(signal.Message{Type: signal.TypeOffer, To: string(remote), CallID: callID, SDP: sdp}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	select {
	case msg := <-cl.reply:
		if msg.Type == signal.TypeHangup {
			_ = conn.Close()
			return nil, fmt.Errorf("%w by %s", ErrRejected, remote)
		}
		if msg.Type == signal.TypeError {
			c.forget(callID)
			_ = conn.Close()
			if msg.Error == signal.ErrCodePeerUnavailable {
				return nil, fmt.Errorf("%w: %s", ErrPeerUnavailable, remote)
			}
			return nil, fmt.Errorf("broker: %s", msg.Error)
		}
		if err := conn.AcceptAnswer(msg.SDP); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("accept answer: %w", err)
		}
		log.Info().Str("module", "rendezvous").Str("peer", string(remote)).Str("call_id", callID).Msg("call answered")
		return conn, nil
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	case <-c.done:
		_ = conn.Close()
		return nil, ErrClosed
	}
}

// Close drops the broker connection and every connection still tracked.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	calls := c.calls
	c.calls = make(map[string]*call)
	close(c.send)
	c.mu.Unlock()

	for _, cl := range calls {
		_ = cl.conn.Close()
	}
	c.finish()
	if ws == nil {
		return nil
	}
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leave"), time.Now().Add(time.Second))
	return ws.Close()
}

func (c *Client) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case c.ws == nil:
		return ErrNotOpen
	}
	return nil
}

// track remembers a call until it ends. A connection that closes on our side
// tells the remote with a hangup.
func (c *Client) track(callID string, cl *call, remote domain.ParticipantID) {
	c.mu.Lock()
	c.calls[callID] = cl
	c.mu.Unlock()
	cl.conn.OnClosed(func() {
		if c.forget(callID) {
			_ = c.write(signal.Message{Type: signal.TypeHangup, To: string(remote), CallID: callID})
		}
	})
}

func (c *Client) take(callID string) (*call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.calls[callID]
	if ok {
		delete(c.calls, callID)
	}
	return cl, ok
}

func (c *Client) forget(callID string) bool {
	_, ok := c.take(callID)
	return ok
}

func (c *Client) lookup(callID string) (*call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.calls[callID]
	return cl, ok
}

func (c *Client) write(msg signal.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return signal.ErrBackpressure
	}
}

func (c *Client) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}
