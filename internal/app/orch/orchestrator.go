package orch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/media"
	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type ChatHandler func(from domain.ParticipantID, text string)

// Deps are the orchestrator's collaborators. Notifier and OnChat may be nil.
type Deps struct {
	Registry    *app.Registry
	Media       *media.Manager
	Coordinator *Coordinator
	Rendezvous  core.Rendezvous
	Notifier    Notifier
	OnChat      ChatHandler

	Constraints   domain.Constraints
	BaseURL       string
	MediaTimeout  time.Duration
	AnswerTimeout time.Duration
}

// Orchestrator runs one participant's side of a meeting: hosting or joining,
// accepting calls, user media actions and leaving.
type Orchestrator struct {
	Registry    *app.Registry
	Media       *media.Manager
	Coordinator *Coordinator
	Rendezvous  core.Rendezvous
	Notifier    Notifier
	OnChat      ChatHandler

	constraints   domain.Constraints
	baseURL       string
	mediaTimeout  time.Duration
	answerTimeout time.Duration

	mu   sync.RWMutex
	self domain.ParticipantID

	left      atomic.Bool
	leaveOnce sync.Once
	leaveErr  error
}

// New wires the orchestrator and subscribes it to media source changes.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		Registry:      d.Registry,
		Media:         d.Media,
		Coordinator:   d.Coordinator,
		Rendezvous:    d.Rendezvous,
		Notifier:      d.Notifier,
		OnChat:        d.OnChat,
		constraints:   d.Constraints,
		baseURL:       d.BaseURL,
		mediaTimeout:  d.MediaTimeout,
		answerTimeout: d.AnswerTimeout,
	}
	if o.Notifier == nil {
		o.Notifier = LogNotifier{}
	}
	if o.Coordinator == nil {
		o.Coordinator = NewCoordinator(o.Registry, 0)
	}
	o.Media.SetSourceListener(o.onSourcesChanged)
	return o
}

// Self is our participant id once Host or Join opened the rendezvous.
func (o *Orchestrator) Self() domain.ParticipantID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.self
}

// onSourcesChanged pushes the new active sources into every live session.
func (o *Orchestrator) onSourcesChanged(b core.TrackBundle) {
	ctx := context.Background()
	res := o.Coordinator.ApplyBundle(ctx, b)
	for _, f := range res.Failed {
		log.Warn().Str("module", "orch").Str("peer", string(f.Peer)).Err(f.Err).Msg("source not applied")
	}
}

// syncSession pushes the current sources into s. It covers a source change
// that landed between reading Outgoing and s being registered.
func (o *Orchestrator) syncSession(ctx context.Context, s *session.Session) {
	b := o.Media.Outgoing()
	for _, kind := range []domain.TrackKind{domain.KindVideo, domain.KindAudio} {
		if err := s.Replace(ctx, kind, b.Get(kind)); err != nil {
			log.Debug().Str("module", "orch").Str("peer", string(s.Peer())).Str("kind", kind.String()).Err(err).Msg("sync sources")
		}
	}
}

func (o *Orchestrator) notify(kind NoticeKind, peer domain.ParticipantID, err error) {
	o.Notifier.Notify(Notice{Kind: kind, Peer: peer, Err: err})
}

func (o *Orchestrator) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
