package orch

import (
	"errors"

	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type NoticeKind int

const (
	NoticeDeviceUnavailable NoticeKind = iota
	NoticeScreenShareDenied
	NoticeConnectionError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeDeviceUnavailable:
		return "device_unavailable"
	case NoticeScreenShareDenied:
		return "screen_share_denied"
	case NoticeConnectionError:
		return "connection_error"
	default:
		return "unknown"
	}
}

// Notice is a dismissible, non-blocking message for the user.
type Notice struct {
	Kind NoticeKind
	Peer domain.ParticipantID
	Err  error
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier prints notices as warnings.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	ev := log.Warn().Str("module", "notice").Str("kind", n.Kind.String()).Err(n.Err)
	if n.Peer != "" {
		ev = ev.Str("peer", string(n.Peer))
	}
	ev.Msg("notice")
}

// SessionNotices reports errored sessions to n.
func SessionNotices(n Notifier) session.Observer {
	return session.ObserverFunc(func(ev session.Event) {
		if ev.Type != session.EventErrored {
			return
		}
		err := ev.Err
		if err == nil {
			err = domain.ErrConnection
		}
		n.Notify(Notice{Kind: NoticeConnectionError, Peer: ev.Peer, Err: err})
	})
}

func noticeFor(err error) (NoticeKind, bool) {
	switch {
	case errors.Is(err, domain.ErrDeviceUnavailable):
		return NoticeDeviceUnavailable, true
	case errors.Is(err, domain.ErrScreenShareDenied):
		return NoticeScreenShareDenied, true
	case errors.Is(err, domain.ErrConnection):
		return NoticeConnectionError, true
	}
	return 0, false
}
