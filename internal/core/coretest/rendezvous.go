package coretest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Rendezvous is an in-memory broker stub: Open returns a fixed id and Call
// hands out fake connections.
type Rendezvous struct {
	ID domain.ParticipantID

	mu      sync.Mutex
	handler func(core.ConnectionHandle)
	calls   map[domain.ParticipantID]*Connection
	offered map[domain.ParticipantID]core.TrackBundle
	closed  bool
	CallErr error
	OpenErr error
}

func NewRendezvous(id domain.ParticipantID) *Rendezvous {
	return &Rendezvous{
		ID:      id,
		calls:   make(map[domain.ParticipantID]*Connection),
		offered: make(map[domain.ParticipantID]core.TrackBundle),
	}
}

func (r *Rendezvous) Open(context.Context) (domain.ParticipantID, error) {
	if r.OpenErr != nil {
		return "", r.OpenErr
	}
	return r.ID, nil
}

func (r *Rendezvous) OnIncomingConnection(handler func(core.ConnectionHandle)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

func (r *Rendezvous) Call(_ context.Context, remote domain.ParticipantID, local core.TrackBundle) (core.ConnectionHandle, error) {
	if r.CallErr != nil {
		return nil, r.CallErr
	}
	conn := NewConnection(remote)
	r.mu.Lock()
	r.calls[remote] = conn
	r.offered[remote] = local
	r.mu.Unlock()
	return conn, nil
}

func (r *Rendezvous) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Incoming delivers conn to the registered handler as if remote called us.
func (r *Rendezvous) Incoming(conn core.ConnectionHandle) error {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h == nil {
		return fmt.Errorf("no incoming handler")
	}
	h(conn)
	return nil
}

func (r *Rendezvous) Outbound(remote domain.ParticipantID) (*Connection, core.TrackBundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[remote]
	return c, r.offered[remote], ok
}

func (r *Rendezvous) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
