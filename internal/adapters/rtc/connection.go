// Package rtc implements core.ConnectionHandle on top of pion/webrtc.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed      = errors.New("connection closed")
	ErrICEFailed   = errors.New("ice failed")
	ErrNotIncoming = errors.New("answer on an outgoing connection")
	ErrNotLocal    = errors.New("track cannot be sent")
)

// LocalTrack is a core.Track that pion can send.
type LocalTrack interface {
	core.Track
	Local() webrtc.TrackLocal
}

// PacketSink receives remote audio RTP for playout.
type PacketSink interface {
	Deliver(peer domain.ParticipantID, pkt *rtp.Packet)
}

type Connection struct {
	peer   domain.ParticipantID
	callID string
	pc     *webrtc.PeerConnection
	cfg    Config
	chat   *Chat
	sink   PacketSink
	logger zerolog.Logger

	sendAnswer func(sdp string) error

	mu       sync.Mutex
	closed   bool
	events   chan core.ConnectionEvent
	senders  map[domain.TrackKind]*webrtc.RTPSender
	silent   map[domain.TrackKind]webrtc.TrackLocal
	onClosed []func()

	lastVideo atomic.Int64
	lastAudio atomic.Int64
	probing   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ core.ConnectionHandle = (*Connection)(nil)
	_ core.ChatCapable      = (*Connection)(nil)
)

func newConnection(api *webrtc.API, cfg Config, peer domain.ParticipantID, callID string, sink PacketSink) (*Connection, error) {
	pc, err := api.NewPeerConnection(cfg.webrtc())
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		peer:    peer,
		callID:  callID,
		pc:      pc,
		cfg:     cfg,
		chat:    newChat(peer),
		sink:    sink,
		logger:  log.With().Str("module", "rtc").Str("peer", string(peer)).Str("call_id", callID).Logger(),
		events:  make(chan core.ConnectionEvent, 32),
		senders: make(map[domain.TrackKind]*webrtc.RTPSender),
		silent:  make(map[domain.TrackKind]webrtc.TrackLocal),
		ctx:     ctx,
		cancel:  cancel,
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			c.startProbe()
		case webrtc.PeerConnectionStateFailed:
			c.fail(ErrICEFailed)
		case webrtc.PeerConnectionStateClosed:
			_ = c.Close()
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info().Str("kind", track.Kind().String()).Str("track_id", track.ID()).Msg("OnTrack received")
		go c.watch(track)
	})
	pc.OnDataChannel(c.chat.bind)
	return c, nil
}

func (c *Connection) Peer() domain.ParticipantID          { return c.peer }
func (c *Connection) CallID() string                      { return c.callID }
func (c *Connection) Events() <-chan core.ConnectionEvent { return c.events }
func (c *Connection) Chat() core.MessageChannel           { return c.chat }

// OnClosed adds a hook run once after the connection closes for any reason.
func (c *Connection) OnClosed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClosed = append(c.onClosed, fn)
}

// bindSenders adds one sender per kind. A missing local track is replaced by a
// silent one so the slot exists for later replacement.
func (c *Connection) bindSenders(local core.TrackBundle) error {
	for _, kind := range []domain.TrackKind{domain.KindAudio, domain.KindVideo} {
		silent, err := silentTrack(kind)
		if err != nil {
			return err
		}
		tl, err := localOf(local.Get(kind))
		if err != nil {
			return err
		}
		if tl == nil {
			tl = silent
		}
		sender, err := c.pc.AddTrack(tl)
		if err != nil {
			return fmt.Errorf("add %s track: %w", kind, err)
		}
		go drainRTCP(sender)

		c.mu.Lock()
		c.senders[kind] = sender
		c.silent[kind] = silent
		c.mu.Unlock()
	}
	return nil
}

// Answer completes an incoming connection and sends the answer back.
func (c *Connection) Answer(ctx context.Context, local core.TrackBundle) error {
	if c.sendAnswer == nil {
		return ErrNotIncoming
	}
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.bindSenders(local); err != nil {
		return err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	sdp, err := c.gather(ctx, answer)
	if err != nil {
		return err
	}
	return c.sendAnswer(sdp)
}

// AcceptAnswer applies the remote answer to an outgoing connection.
func (c *Connection) AcceptAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
}

// gather sets the local description and waits for ICE gathering to finish, so
// the description carries every candidate.
func (c *Connection) gather(ctx context.Context, desc webrtc.SessionDescription) (string, error) {
	done := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.ctx.Done():
		return "", ErrClosed
	}
	return c.pc.LocalDescription().SDP, nil
}

func (c *Connection) ReplaceTrack(ctx context.Context, kind domain.TrackKind, track core.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed, sender, silent := c.closed, c.senders[kind], c.silent[kind]
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if sender == nil {
		return fmt.Errorf("%w: no %s sender yet", domain.ErrSenderNotReady, kind)
	}

	tl, err := localOf(track)
	if err != nil {
		return err
	}
	if tl == nil {
		tl = silent
	}
	if err := sender.ReplaceTrack(tl); err != nil {
		return fmt.Errorf("replace %s sender track: %w", kind, err)
	}
	return nil
}

func (c *Connection) Close() error {
	c.shutdown(core.ConnectionEvent{Type: core.EventClose})
	return nil
}

func (c *Connection) fail(err error) {
	c.shutdown(core.ConnectionEvent{Type: core.EventError, Err: err})
}

func (c *Connection) shutdown(ev core.ConnectionEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.sendLocked(ev)
	close(c.events)
	hooks := c.onClosed
	c.mu.Unlock()

	c.cancel()
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
	} else {
		c.logger.Info().Str("reason", ev.Type.String()).Msg("closed")
	}
	for _, fn := range hooks {
		fn()
	}
}

func (c *Connection) emit(ev core.ConnectionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sendLocked(ev)
}

func (c *Connection) sendLocked(ev core.ConnectionEvent) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn().Str("event", ev.Type.String()).Msg("event dropped, consumer too slow")
	}
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func localOf(t core.Track) (webrtc.TrackLocal, error) {
	if t == nil {
		return nil, nil
	}
	lt, ok := t.(LocalTrack)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLocal, t.ID())
	}
	return lt.Local(), nil
}

func silentTrack(kind domain.TrackKind) (webrtc.TrackLocal, error) {
	codec := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	if kind == domain.KindVideo {
		codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}
	return webrtc.NewTrackLocalStaticSample(codec, "silent-"+kind.String(), "meet")
}

// drainRTCP reads incoming RTCP so interceptors (NACK, reports) keep working.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
