package core

import (
	"context"

	"github.com/dkeye/Meet/internal/domain"
)

type ConnectionEventType int

const (
	// EventStream reports the remote media currently flowing.
	EventStream ConnectionEventType = iota
	EventClose
	EventError
)

func (t ConnectionEventType) String() string {
	switch t {
	case EventStream:
		return "stream"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type RemoteMedia struct {
	HasVideo bool
	HasAudio bool
}

type ConnectionEvent struct {
	Type  ConnectionEventType
	Media RemoteMedia
	Err   error
}

// ConnectionHandle is one media connection to one remote participant.
type ConnectionHandle interface {
	Peer() domain.ParticipantID
	// Answer accepts an incoming connection, offering local tracks back.
	Answer(ctx context.Context, local TrackBundle) error
	// Events is closed after the terminal close/error event.
	Events() <-chan ConnectionEvent
	// ReplaceTrack swaps the track bound to the sender slot of kind without
	// renegotiation. A nil track sends nothing.
	ReplaceTrack(ctx context.Context, kind domain.TrackKind, track Track) error
	// Close terminates the connection. Safe to call more than once.
	Close() error
}

// Rendezvous allocates our address and brokers connection setup.
type Rendezvous interface {
	// Open registers with the broker and returns our participant id.
	Open(ctx context.Context) (domain.ParticipantID, error)
	// OnIncomingConnection sets the handler for calls placed to us.
	OnIncomingConnection(handler func(ConnectionHandle))
	Call(ctx context.Context, remote domain.ParticipantID, local TrackBundle) (ConnectionHandle, error)
	Close() error
}
