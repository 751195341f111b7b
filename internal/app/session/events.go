package session

import "github.com/dkeye/Meet/internal/domain"

type EventType int

const (
	// EventStarted fires once, when the session is registered.
	EventStarted EventType = iota
	EventRemoteMediaAvailable
	// EventRemoteMediaChanged fires when remote video appears or disappears.
	// Audio-only changes update the session without an event.
	EventRemoteMediaChanged
	EventClosed
	EventErrored
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventRemoteMediaAvailable:
		return "remote_media_available"
	case EventRemoteMediaChanged:
		return "remote_media_changed"
	case EventClosed:
		return "closed"
	case EventErrored:
		return "errored"
	default:
		return "unknown"
	}
}

type Event struct {
	// Session is the emitter. A participant that reconnects gets a new
	// Session, so observers keying by Peer use it to tell the two apart.
	Session  *Session
	Type     EventType
	Peer     domain.ParticipantID
	HasVideo bool
	HasAudio bool
	Err      error
}

// Observer receives session events in order. No event follows EventClosed or
// EventErrored. Implementations must not block and must not call back into
// the emitting session's Close.
type Observer interface {
	OnSessionEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnSessionEvent(ev Event) { f(ev) }
