package coretest

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

var ErrClosed = errors.New("fake connection closed")

// Replacement records one ReplaceTrack call.
type Replacement struct {
	Kind  domain.TrackKind
	Track core.Track
}

// Connection is a scriptable core.ConnectionHandle.
type Connection struct {
	peer   domain.ParticipantID
	events chan core.ConnectionEvent

	mu           sync.Mutex
	closed       bool
	closeCalls   int
	answered     *core.TrackBundle
	replacements []Replacement

	// ReplaceHook, when set, runs inside ReplaceTrack before it is recorded.
	ReplaceHook func(ctx context.Context, kind domain.TrackKind, track core.Track) error
	// AnswerErr is returned from Answer when set.
	AnswerErr error
}

func NewConnection(peer domain.ParticipantID) *Connection {
	return &Connection{peer: peer, events: make(chan core.ConnectionEvent, 64)}
}

func (c *Connection) Peer() domain.ParticipantID          { return c.peer }
func (c *Connection) Events() <-chan core.ConnectionEvent { return c.events }

func (c *Connection) Answer(_ context.Context, local core.TrackBundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AnswerErr != nil {
		return c.AnswerErr
	}
	c.answered = &local
	return nil
}

func (c *Connection) ReplaceTrack(ctx context.Context, kind domain.TrackKind, track core.Track) error {
	if c.ReplaceHook != nil {
		if err := c.ReplaceHook(ctx, kind, track); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.replacements = append(c.replacements, Replacement{Kind: kind, Track: track})
	return nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	if c.closed {
		return nil
	}
	c.closed = true
	c.sendLocked(core.ConnectionEvent{Type: core.EventClose})
	close(c.events)
	return nil
}

// EmitStream simulates the remote media set changing.
func (c *Connection) EmitStream(hasVideo, hasAudio bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sendLocked(core.ConnectionEvent{
		Type:  core.EventStream,
		Media: core.RemoteMedia{HasVideo: hasVideo, HasAudio: hasAudio},
	})
}

// Fail simulates a transport error; the handle is finished afterwards.
func (c *Connection) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.sendLocked(core.ConnectionEvent{Type: core.EventError, Err: err})
	close(c.events)
}

// Hangup simulates the remote side closing.
func (c *Connection) Hangup() { _ = c.Close() }

func (c *Connection) sendLocked(ev core.ConnectionEvent) {
	select {
	case c.events <- ev:
	default:
	}
}

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Connection) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

func (c *Connection) Answered() (core.TrackBundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answered == nil {
		return core.TrackBundle{}, false
	}
	return *c.answered, true
}

func (c *Connection) Replacements() []Replacement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Replacement(nil), c.replacements...)
}

// Last returns the most recently replaced track of kind.
func (c *Connection) Last(kind domain.TrackKind) (core.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.replacements) - 1; i >= 0; i-- {
		if c.replacements[i].Kind == kind {
			return c.replacements[i].Track, true
		}
	}
	return nil, false
}
