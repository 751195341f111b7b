package presence

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/core/coretest"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutputs struct {
	mu       sync.Mutex
	attached map[domain.ParticipantID]int
	detached map[domain.ParticipantID]int
	err      error
}

func newFakeOutputs() *fakeOutputs {
	return &fakeOutputs{attached: map[domain.ParticipantID]int{}, detached: map[domain.ParticipantID]int{}}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func (o *fakeOutputs) Attach(peer domain.ParticipantID) (io.Closer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.attached[peer]++
	return closerFunc(func() error {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.detached[peer]++
		return nil
	}), nil
}

func (o *fakeOutputs) counts(peer domain.ParticipantID) (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attached[peer], o.detached[peer]
}

type renders struct {
	mu  sync.Mutex
	all []Entry
}

func (r *renders) Render(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, e)
}

func (r *renders) kinds() []domain.PresenceKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PresenceKind
	for _, e := range r.all {
		out = append(out, e.Kind)
	}
	return out
}

func TestProjectorTransitions(t *testing.T) {
	out := newFakeOutputs()
	r := &renders{}
	p := NewProjector(r, out)

	p.OnSessionEvent(session.Event{Type: session.EventStarted, Peer: "p1"})
	e, ok := p.Get("p1")
	require.True(t, ok)
	assert.Equal(t, domain.PresencePlaceholder, e.Kind)
	assert.Equal(t, "P", e.Initial)

	p.OnSessionEvent(session.Event{Type: session.EventRemoteMediaAvailable, Peer: "p1", HasAudio: true})
	p.OnSessionEvent(session.Event{Type: session.EventRemoteMediaChanged, Peer: "p1", HasVideo: true, HasAudio: true})
	e, _ = p.Get("p1")
	assert.Equal(t, domain.PresenceVideo, e.Kind)

	p.OnSessionEvent(session.Event{Type: session.EventRemoteMediaChanged, Peer: "p1", HasAudio: true})
	e, _ = p.Get("p1")
	assert.Equal(t, domain.PresencePlaceholder, e.Kind)

	attached, detached := out.counts("p1")
	assert.Equal(t, 1, attached)
	assert.Equal(t, 0, detached)

	p.OnSessionEvent(session.Event{Type: session.EventErrored, Peer: "p1", Err: domain.ErrConnection})
	_, ok = p.Get("p1")
	assert.False(t, ok)
	_, detached = out.counts("p1")
	assert.Equal(t, 1, detached)

	assert.Equal(t, []domain.PresenceKind{
		domain.PresencePlaceholder,
		domain.PresenceVideo,
		domain.PresencePlaceholder,
		domain.PresenceRemoved,
	}, r.kinds())

	// a late duplicate terminal event is ignored
	p.OnSessionEvent(session.Event{Type: session.EventClosed, Peer: "p1"})
	assert.Len(t, r.kinds(), 4)
}

func TestProjectorAudioAttachFailureKeepsEntry(t *testing.T) {
	out := newFakeOutputs()
	out.err = errors.New("no sink")
	p := NewProjector(nil, out)

	p.OnSessionEvent(session.Event{Type: session.EventRemoteMediaAvailable, Peer: "p1", HasVideo: true})
	e, ok := p.Get("p1")
	require.True(t, ok)
	assert.Equal(t, domain.PresenceVideo, e.Kind)

	p.OnSessionEvent(session.Event{Type: session.EventClosed, Peer: "p1"})
	assert.Equal(t, 0, p.Len())
}

// H1 sees P1 join without video, then P1 turns the camera on.
func TestPlaceholderThenVideoThroughSession(t *testing.T) {
	p := NewProjector(nil, newFakeOutputs())
	reg := app.NewRegistry(p)

	conn := coretest.NewConnection("P1")
	s, err := reg.RegisterInbound("P1", conn, core.TrackBundle{})
	require.NoError(t, err)

	conn.EmitStream(false, true)
	require.Eventually(t, func() bool { return s.State() == session.StateActive }, time.Second, 5*time.Millisecond)
	e, _ := p.Get("P1")
	assert.Equal(t, domain.PresencePlaceholder, e.Kind)

	conn.EmitStream(true, true)
	require.Eventually(t, func() bool {
		e, _ := p.Get("P1")
		return e.Kind == domain.PresenceVideo
	}, time.Second, 5*time.Millisecond)

	s.Close()
	<-s.Done()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryAndProjectorStayInStep(t *testing.T) {
	p := NewProjector(nil, newFakeOutputs())
	reg := app.NewRegistry(p)

	var sessions []*session.Session
	var conns []*coretest.Connection
	for i := range 8 {
		peer := domain.ParticipantID(fmt.Sprintf("p%d", i))
		conn := coretest.NewConnection(peer)
		s, err := reg.RegisterOutbound(peer, conn, core.TrackBundle{})
		require.NoError(t, err)
		sessions = append(sessions, s)
		conns = append(conns, conn)
		assert.Equal(t, reg.Len(), p.Len())
	}

	// duplicates never add entries
	_, err := reg.RegisterInbound("p3", coretest.NewConnection("p3"), core.TrackBundle{})
	require.ErrorIs(t, err, domain.ErrDuplicateConnection)
	assert.Equal(t, reg.Len(), p.Len())

	for i, s := range sessions {
		switch i % 3 {
		case 0:
			s.Close()
		case 1:
			conns[i].Fail(errors.New("transport"))
		case 2:
			conns[i].Hangup()
		}
		<-s.Done()
		assert.Equal(t, reg.Len(), p.Len())
	}
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Entries())
}

func TestProjectorIgnoresReplacedSession(t *testing.T) {
	out := newFakeOutputs()
	r := &renders{}
	p := NewProjector(r, out)
	old := session.New("p1", session.Outbound, coretest.NewConnection("p1"), core.TrackBundle{})
	fresh := session.New("p1", session.Inbound, coretest.NewConnection("p1"), core.TrackBundle{})

	p.OnSessionEvent(session.Event{Session: old, Type: session.EventStarted, Peer: "p1"})
	p.OnSessionEvent(session.Event{Session: old, Type: session.EventRemoteMediaAvailable, Peer: "p1", HasVideo: true})
	p.OnSessionEvent(session.Event{Session: fresh, Type: session.EventStarted, Peer: "p1"})

	e, ok := p.Get("p1")
	require.True(t, ok)
	assert.Equal(t, domain.PresencePlaceholder, e.Kind, "a new session starts from a fresh tile")
	attached, detached := out.counts("p1")
	assert.Equal(t, 1, attached)
	assert.Equal(t, 1, detached, "the replaced session's output is released")

	p.OnSessionEvent(session.Event{Session: old, Type: session.EventRemoteMediaChanged, Peer: "p1", HasVideo: false})
	p.OnSessionEvent(session.Event{Session: old, Type: session.EventClosed, Peer: "p1"})
	e, ok = p.Get("p1")
	require.True(t, ok)
	assert.Equal(t, domain.PresencePlaceholder, e.Kind)

	p.OnSessionEvent(session.Event{Session: fresh, Type: session.EventRemoteMediaAvailable, Peer: "p1", HasVideo: true})
	e, _ = p.Get("p1")
	assert.Equal(t, domain.PresenceVideo, e.Kind)

	p.OnSessionEvent(session.Event{Session: fresh, Type: session.EventClosed, Peer: "p1"})
	assert.Equal(t, 0, p.Len())
	attached, detached = out.counts("p1")
	assert.Equal(t, 2, attached)
	assert.Equal(t, 2, detached)
}

func TestUnregisterThenReconnectKeepsEntry(t *testing.T) {
	p := NewProjector(nil, newFakeOutputs())
	reg := app.NewRegistry(p)

	old, err := reg.RegisterOutbound("p1", coretest.NewConnection("p1"), core.TrackBundle{})
	require.NoError(t, err)
	reg.Unregister("p1")
	<-old.Done()
	assert.Equal(t, 0, p.Len())

	freshConn := coretest.NewConnection("p1")
	fresh, err := reg.RegisterInbound("p1", freshConn, core.TrackBundle{})
	require.NoError(t, err)

	old.Close()
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, reg.Len(), p.Len())
	_, ok := p.Get("p1")
	assert.True(t, ok)

	fresh.Close()
	<-fresh.Done()
	assert.Equal(t, 0, p.Len())
}

// reconnector registers a new session for the peer whose session just closed,
// before the projector hears about the close.
type reconnector struct {
	reg   *app.Registry
	mu    sync.Mutex
	fresh *session.Session
	conn  *coretest.Connection
	once  sync.Once
}

func (rc *reconnector) OnSessionEvent(ev session.Event) {
	if ev.Type != session.EventClosed {
		return
	}
	rc.once.Do(func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			conn := coretest.NewConnection(ev.Peer)
			s, err := rc.reg.RegisterInbound(ev.Peer, conn, core.TrackBundle{})
			if err != nil {
				return
			}
			rc.mu.Lock()
			rc.fresh, rc.conn = s, conn
			rc.mu.Unlock()
		}()
		<-done
	})
}

func (rc *reconnector) session() (*session.Session, *coretest.Connection) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.fresh, rc.conn
}

func TestReconnectDuringCloseKeepsEntry(t *testing.T) {
	out := newFakeOutputs()
	p := NewProjector(nil, out)
	rc := &reconnector{}
	reg := app.NewRegistry(rc, p)
	rc.reg = reg

	oldConn := coretest.NewConnection("p1")
	old, err := reg.RegisterOutbound("p1", oldConn, core.TrackBundle{})
	require.NoError(t, err)
	oldConn.EmitStream(true, true)
	require.Eventually(t, func() bool { return old.State() == session.StateActive }, time.Second, 5*time.Millisecond)

	oldConn.Hangup()
	<-old.Done()

	fresh, freshConn := rc.session()
	require.NotNil(t, fresh)
	assert.Equal(t, session.StateConnecting, fresh.State())
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, reg.Len(), p.Len())
	e, ok := p.Get("p1")
	require.True(t, ok)
	assert.Equal(t, domain.PresencePlaceholder, e.Kind)

	freshConn.EmitStream(true, true)
	require.Eventually(t, func() bool {
		e, _ := p.Get("p1")
		return e.Kind == domain.PresenceVideo
	}, time.Second, 5*time.Millisecond)
	attached, detached := out.counts("p1")
	assert.Equal(t, 2, attached)
	assert.Equal(t, 1, detached, "only the old session's output is released")

	fresh.Close()
	<-fresh.Done()
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, p.Len())
}
