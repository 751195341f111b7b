// Package signal is the rendezvous broker: it hands out participant ids over
// websocket and relays offers, answers and hangups between them.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	RateLimit    int
	RateInterval time.Duration
	Policy       Policy
	Metrics      *Metrics
}

type Broker struct {
	opts    Options
	limiter *RateLimiter
	metrics *Metrics

	mu    sync.RWMutex
	peers map[domain.ParticipantID]*WsSignalConn
}

func NewBroker(opts Options) *Broker {
	if opts.Policy == nil {
		opts.Policy = SimplePolicy{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	b := &Broker{
		opts:    opts,
		metrics: opts.Metrics,
		peers:   make(map[domain.ParticipantID]*WsSignalConn),
	}
	if opts.RateLimit > 0 {
		b.limiter = NewRateLimiter(opts.RateLimit, opts.RateInterval)
	}
	return b
}

type WsSignalConn struct {
	id   domain.ParticipantID
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request, allocates a participant id and announces
// it with an open message.
func (b *Broker) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	if b.limiter != nil && !b.limiter.Allow(token) {
		log.Warn().Str("module", "signal").Str("client", token).Msg("rate limited")
		b.metrics.Dropped.WithLabelValues("rate_limited").Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if b.opts.ReadLimit > 0 {
		ws.SetReadLimit(b.opts.ReadLimit)
	}

	conn := &WsSignalConn{
		id:   domain.NewParticipantID(),
		conn: ws,
		send: make(chan []byte, 32),
	}
	b.register(conn)
	b.sendJSON(conn, Message{Type: TypeOpen, ID: string(conn.id)})

	ctx, cancel := context.WithCancel(ctx)
	go b.writePump(ctx, conn)
	go func() {
		defer cancel()
		b.readPump(ctx, conn)
	}()
}

func (b *Broker) register(c *WsSignalConn) {
	b.mu.Lock()
	b.peers[c.id] = c
	b.mu.Unlock()
	b.metrics.Peers.Inc()
	log.Info().Str("module", "signal").Str("peer", string(c.id)).Msg("peer online")
}

func (b *Broker) unregister(c *WsSignalConn) {
	b.mu.Lock()
	cur, ok := b.peers[c.id]
	if ok && cur == c {
		delete(b.peers, c.id)
	}
	b.mu.Unlock()
	if ok && cur == c {
		b.metrics.Peers.Dec()
		log.Info().Str("module", "signal").Str("peer", string(c.id)).Msg("peer offline")
	}
}

func (b *Broker) lookup(id domain.ParticipantID) (*WsSignalConn, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.peers[id]
	return c, ok
}

// Online reports whether id currently holds a signaling connection.
func (b *Broker) Online(id domain.ParticipantID) bool {
	_, ok := b.lookup(id)
	return ok
}

func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.peers)
}

// CloseAll drops every peer.
func (b *Broker) CloseAll() {
	b.mu.RLock()
	conns := make([]*WsSignalConn, 0, len(b.peers))
	for _, c := range b.peers {
		conns = append(conns, c)
	}
	b.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}
