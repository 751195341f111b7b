// Package presence turns session events into one display entry per remote
// participant and keeps an audio output attached while the entry lives.
package presence

import (
	"io"
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

type Entry struct {
	Peer    domain.ParticipantID
	Kind    domain.PresenceKind
	Initial string
}

// Renderer draws entries. It sees a final Removed entry before the entry is
// dropped. Render runs with the projector locked and must not call back into it.
type Renderer interface {
	Render(Entry)
}

type RendererFunc func(Entry)

func (f RendererFunc) Render(e Entry) { f(e) }

// AudioOutputs creates the playback element for one participant's audio.
type AudioOutputs interface {
	Attach(peer domain.ParticipantID) (io.Closer, error)
}

type tile struct {
	owner *session.Session
	entry Entry
	audio io.Closer
}

// Projector is a session.Observer. Entries are keyed by participant id; each
// tile belongs to the session that started it, so events from a replaced
// session never touch its successor's tile.
type Projector struct {
	mu       sync.Mutex
	tiles    map[domain.ParticipantID]*tile
	renderer Renderer
	outputs  AudioOutputs
}

var _ session.Observer = (*Projector)(nil)

// NewProjector returns a projector. Either collaborator may be nil.
func NewProjector(renderer Renderer, outputs AudioOutputs) *Projector {
	return &Projector{
		tiles:    make(map[domain.ParticipantID]*tile),
		renderer: renderer,
		outputs:  outputs,
	}
}

func (p *Projector) OnSessionEvent(ev session.Event) {
	switch ev.Type {
	case session.EventStarted:
		p.start(ev.Session, ev.Peer)
	case session.EventRemoteMediaAvailable, session.EventRemoteMediaChanged:
		kind := domain.PresencePlaceholder
		if ev.HasVideo {
			kind = domain.PresenceVideo
		}
		p.upsert(ev.Session, ev.Peer, kind)
	case session.EventClosed, session.EventErrored:
		p.remove(ev.Session, ev.Peer)
	}
}

// start gives owner a fresh placeholder tile, dropping any tile a previous
// session for the same participant left behind.
func (p *Projector) start(owner *session.Session, peer domain.ParticipantID) {
	t := &tile{owner: owner, entry: Entry{Peer: peer, Kind: domain.PresencePlaceholder, Initial: peer.Initial()}}
	p.mu.Lock()
	defer p.mu.Unlock()
	stale := p.tiles[peer]
	p.tiles[peer] = t

	if stale != nil {
		log.Debug().Str("module", "presence").Str("peer", string(peer)).Msg("replacing tile of previous session")
		p.detach(peer, stale)
	}
	log.Debug().Str("module", "presence").Str("peer", string(peer)).Str("kind", t.entry.Kind.String()).Msg("presence")
	p.render(t.entry)
}

func (p *Projector) upsert(owner *session.Session, peer domain.ParticipantID, kind domain.PresenceKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tiles[peer]
	if ok && t.owner != owner {
		log.Debug().Str("module", "presence").Str("peer", string(peer)).Msg("event from replaced session ignored")
		return
	}
	if !ok {
		t = &tile{owner: owner, entry: Entry{Peer: peer, Kind: kind, Initial: peer.Initial()}}
		p.tiles[peer] = t
	}
	changed := !ok || t.entry.Kind != kind
	t.entry.Kind = kind
	if t.audio == nil && p.outputs != nil {
		out, err := p.outputs.Attach(peer)
		if err != nil {
			log.Warn().Str("module", "presence").Str("peer", string(peer)).Err(err).Msg("attach audio output")
		} else {
			t.audio = out
		}
	}
	if changed {
		log.Debug().Str("module", "presence").Str("peer", string(peer)).Str("kind", kind.String()).Msg("presence")
		p.render(t.entry)
	}
}

func (p *Projector) remove(owner *session.Session, peer domain.ParticipantID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tiles[peer]
	if !ok || t.owner != owner {
		return
	}
	delete(p.tiles, peer)

	p.detach(peer, t)
	t.entry.Kind = domain.PresenceRemoved
	log.Debug().Str("module", "presence").Str("peer", string(peer)).Msg("presence removed")
	p.render(t.entry)
}

func (p *Projector) detach(peer domain.ParticipantID, t *tile) {
	if t.audio == nil {
		return
	}
	if err := t.audio.Close(); err != nil {
		log.Warn().Str("module", "presence").Str("peer", string(peer)).Err(err).Msg("detach audio output")
	}
}

func (p *Projector) render(e Entry) {
	if p.renderer != nil {
		p.renderer.Render(e)
	}
}

func (p *Projector) Get(peer domain.ParticipantID) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tiles[peer]
	if !ok {
		return Entry{}, false
	}
	return t.entry, true
}

func (p *Projector) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tiles)
}

// Entries returns the current entries ordered by participant id.
func (p *Projector) Entries() []Entry {
	p.mu.Lock()
	out := make([]Entry, 0, len(p.tiles))
	for _, t := range p.tiles {
		out = append(out, t.entry)
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Peer < out[j].Peer })
	return out
}
