// Package playout holds the audio outputs for remote participants and routes
// received audio RTP into them.
package playout

import (
	"errors"
	"io"
	"sync"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
)

var ErrAttached = errors.New("audio output already attached")

// SinkFactory creates the sink behind a new output.
type SinkFactory func(peer domain.ParticipantID) (Sink, error)

type Router struct {
	newSink SinkFactory

	mu      sync.RWMutex
	outputs map[domain.ParticipantID]*Output
}

func NewRouter(newSink SinkFactory) *Router {
	if newSink == nil {
		newSink = func(peer domain.ParticipantID) (Sink, error) { return NewMeterSink(peer), nil }
	}
	return &Router{
		newSink: newSink,
		outputs: make(map[domain.ParticipantID]*Output),
	}
}

// Attach creates peer's output. Closing the returned handle detaches it.
func (r *Router) Attach(peer domain.ParticipantID) (io.Closer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.outputs[peer]; ok && old.State() != OutputDelete {
		return nil, ErrAttached
	}
	sink, err := r.newSink(peer)
	if err != nil {
		return nil, err
	}
	out := NewOutput(sink)
	r.outputs[peer] = out
	log.Info().Str("module", "playout").Str("peer", string(peer)).Msg("audio output attached")
	return detacher{r: r, peer: peer, out: out}, nil
}

type detacher struct {
	r    *Router
	peer domain.ParticipantID
	out  *Output
}

func (d detacher) Close() error { return d.r.detach(d.peer, d.out) }

func (r *Router) detach(peer domain.ParticipantID, out *Output) error {
	out.MarkDelete()
	r.mu.Lock()
	if cur, ok := r.outputs[peer]; ok && cur == out {
		delete(r.outputs, peer)
	}
	r.mu.Unlock()
	log.Info().Str("module", "playout").Str("peer", string(peer)).Msg("audio output detached")
	return out.Sink.Close()
}

// Deliver routes one packet from peer. Packets for peers without an output
// are dropped.
func (r *Router) Deliver(peer domain.ParticipantID, pkt *rtp.Packet) {
	r.mu.RLock()
	out, ok := r.outputs[peer]
	r.mu.RUnlock()
	if !ok {
		return
	}

	switch out.State() {
	case OutputDelete, OutputMuted:
	case OutputOk:
		if err := out.Sink.WriteRTP(pkt); err != nil {
			log.Error().Err(err).Str("module", "playout").Str("peer", string(peer)).Msg("write RTP error, marking output as delete")
			out.MarkDelete()
			r.mu.Lock()
			if cur, ok := r.outputs[peer]; ok && cur == out {
				delete(r.outputs, peer)
			}
			r.mu.Unlock()
		}
	}
}

// SetMuted silences peer locally without detaching.
func (r *Router) SetMuted(peer domain.ParticipantID, muted bool) bool {
	r.mu.RLock()
	out, ok := r.outputs[peer]
	r.mu.RUnlock()
	if !ok || out.State() == OutputDelete {
		return false
	}
	if muted {
		out.MarkMuted()
	} else {
		out.MarkOk()
	}
	return true
}

func (r *Router) Attached(peer domain.ParticipantID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.outputs[peer]
	return ok && out.State() != OutputDelete
}

// CloseAll detaches every output.
func (r *Router) CloseAll() {
	r.mu.Lock()
	outs := r.outputs
	r.outputs = make(map[domain.ParticipantID]*Output)
	r.mu.Unlock()
	for peer, out := range outs {
		out.MarkDelete()
		if err := out.Sink.Close(); err != nil {
			log.Warn().Err(err).Str("module", "playout").Str("peer", string(peer)).Msg("close sink")
		}
	}
}
