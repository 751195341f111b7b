package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Failure is one session that did not take the new source.
type Failure struct {
	Peer domain.ParticipantID
	Err  error
}

// Result reports a source switch. Replacements discarded because the session
// closed meanwhile appear in neither list.
type Result struct {
	Succeeded []domain.ParticipantID
	Failed    []Failure
}

func (r Result) OK() bool { return len(r.Failed) == 0 }

// Coordinator pushes the active outgoing source into every live session.
type Coordinator struct {
	registry *app.Registry
	timeout  time.Duration
}

// NewCoordinator returns a coordinator over registry. A non-zero timeout bounds
// each per-session replacement.
func NewCoordinator(registry *app.Registry, timeout time.Duration) *Coordinator {
	return &Coordinator{registry: registry, timeout: timeout}
}

func (c *Coordinator) ApplyVideoSource(ctx context.Context, track core.Track) Result {
	return c.apply(ctx, domain.KindVideo, track)
}

func (c *Coordinator) ApplyAudioSource(ctx context.Context, track core.Track) Result {
	return c.apply(ctx, domain.KindAudio, track)
}

// ApplyBundle switches both kinds.
func (c *Coordinator) ApplyBundle(ctx context.Context, b core.TrackBundle) Result {
	v := c.ApplyVideoSource(ctx, b.Video)
	a := c.ApplyAudioSource(ctx, b.Audio)
	return merge(v, a)
}

func (c *Coordinator) apply(ctx context.Context, kind domain.TrackKind, track core.Track) Result {
	var (
		mu  sync.Mutex
		res Result
		wg  conc.WaitGroup
	)
	for _, s := range c.registry.Snapshot() {
		wg.Go(func() {
			err := c.replaceOne(ctx, s, kind, track)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Succeeded = append(res.Succeeded, s.Peer())
			case errors.Is(err, session.ErrDiscarded):
			default:
				res.Failed = append(res.Failed, Failure{Peer: s.Peer(), Err: err})
			}
		})
	}
	wg.Wait()

	if len(res.Failed) > 0 {
		log.Warn().Str("module", "orch.coordinator").Str("kind", kind.String()).
			Int("succeeded", len(res.Succeeded)).Int("failed", len(res.Failed)).Msg("source switch partially failed")
	} else {
		log.Debug().Str("module", "orch.coordinator").Str("kind", kind.String()).
			Int("succeeded", len(res.Succeeded)).Msg("source switched")
	}
	return res
}

func (c *Coordinator) replaceOne(ctx context.Context, s *session.Session, kind domain.TrackKind, track core.Track) (err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var pc panics.Catcher
	pc.Try(func() { err = s.Replace(ctx, kind, track) })
	if r := pc.Recovered(); r != nil {
		log.Error().Str("module", "orch.coordinator").Str("peer", string(s.Peer())).Str("panic", fmt.Sprint(r.Value)).Msg("replace panicked")
		return r.AsError()
	}
	return err
}

func merge(a, b Result) Result {
	out := Result{Succeeded: a.Succeeded, Failed: append(a.Failed, b.Failed...)}
	failed := make(map[domain.ParticipantID]bool, len(out.Failed))
	for _, f := range out.Failed {
		failed[f.Peer] = true
	}
	seen := make(map[domain.ParticipantID]bool)
	var ok []domain.ParticipantID
	for _, p := range append(append([]domain.ParticipantID(nil), a.Succeeded...), b.Succeeded...) {
		if failed[p] || seen[p] {
			continue
		}
		seen[p] = true
		ok = append(ok, p)
	}
	out.Succeeded = ok
	return out
}
