// Package coretest provides in-memory fakes of the core ports for tests.
package coretest

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/Meet/internal/domain"
)

type Track struct {
	id      string
	kind    domain.TrackKind
	enabled atomic.Bool
	ended   chan struct{}
	once    sync.Once
	stops   atomic.Int32
}

func NewTrack(id string, kind domain.TrackKind) *Track {
	t := &Track{id: id, kind: kind, ended: make(chan struct{})}
	t.enabled.Store(true)
	return t
}

func (t *Track) ID() string              { return t.id }
func (t *Track) Kind() domain.TrackKind  { return t.kind }
func (t *Track) Enabled() bool           { return t.enabled.Load() }
func (t *Track) SetEnabled(enabled bool) { t.enabled.Store(enabled) }
func (t *Track) Ended() <-chan struct{}  { return t.ended }
func (t *Track) Stopped() bool           { return t.stops.Load() > 0 }

func (t *Track) Stop() {
	t.stops.Add(1)
	t.End()
}

// End simulates the source going away on its own (e.g. the user pressing the
// browser's "stop sharing").
func (t *Track) End() {
	t.once.Do(func() { close(t.ended) })
}
