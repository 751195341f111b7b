package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/app/session"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/core/coretest"
	"github.com/dkeye/Meet/internal/core/mocks"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRegisterDuplicateClosesNewHandle(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := NewRegistry()

	first := coretest.NewConnection("p1")
	s, err := reg.RegisterOutbound("p1", first, core.TrackBundle{})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	dup := mocks.NewMockConnectionHandle(ctrl)
	dup.EXPECT().Close().Return(nil).Times(1)

	got, err := reg.RegisterInbound("p1", dup, core.TrackBundle{})
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)
	assert.Same(t, s, got, "existing session is returned unchanged")
	assert.False(t, first.Closed())
	assert.Equal(t, 1, reg.Len())
}

func TestRegisterSequenceKeepsFirst(t *testing.T) {
	reg := NewRegistry()
	conns := make([]*coretest.Connection, 6)
	for i := range conns {
		conns[i] = coretest.NewConnection("p1")
		var err error
		if i%2 == 0 {
			_, err = reg.RegisterOutbound("p1", conns[i], core.TrackBundle{})
		} else {
			_, err = reg.RegisterInbound("p1", conns[i], core.TrackBundle{})
		}
		if i == 0 {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, domain.ErrDuplicateConnection)
		}
	}

	assert.Equal(t, 1, reg.Len())
	assert.False(t, conns[0].Closed())
	for _, c := range conns[1:] {
		assert.True(t, c.Closed())
	}
	s, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Same(t, conns[0], s.Conn())
	s.Close()
}

func TestInboundRaceLeavesOneSession(t *testing.T) {
	var mu sync.Mutex
	var errored []session.Event
	reg := NewRegistry(session.ObserverFunc(func(ev session.Event) {
		if ev.Type == session.EventErrored {
			mu.Lock()
			errored = append(errored, ev)
			mu.Unlock()
		}
	}))

	const racers = 16
	conns := make([]*coretest.Connection, racers)
	var wg sync.WaitGroup
	for i := range racers {
		conns[i] = coretest.NewConnection("p1")
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.RegisterInbound("p1", conns[i], core.TrackBundle{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Len())
	open := 0
	for _, c := range conns {
		if !c.Closed() {
			open++
		}
	}
	assert.Equal(t, 1, open)
	mu.Lock()
	assert.Empty(t, errored, "losing handles are not user-visible errors")
	mu.Unlock()

	require.NoError(t, reg.CloseAll(context.Background()))
}

func TestSessionCloseUnregisters(t *testing.T) {
	reg := NewRegistry()
	conn := coretest.NewConnection("p1")
	s, err := reg.RegisterOutbound("p1", conn, core.TrackBundle{})
	require.NoError(t, err)

	conn.Hangup()
	<-s.Done()

	assert.Equal(t, 0, reg.Len())
	reg.Unregister("p1")
	assert.Equal(t, 0, reg.Len())

	// the key is free again
	again, err := reg.RegisterOutbound("p1", coretest.NewConnection("p1"), core.TrackBundle{})
	require.NoError(t, err)
	again.Close()
}

func TestStaleTerminalDoesNotDropNewSession(t *testing.T) {
	reg := NewRegistry()
	old, err := reg.RegisterOutbound("p1", coretest.NewConnection("p1"), core.TrackBundle{})
	require.NoError(t, err)
	reg.Unregister("p1")
	<-old.Done()
	assert.Equal(t, session.StateClosed, old.State(), "unregister runs the terminal path")

	fresh, err := reg.RegisterInbound("p1", coretest.NewConnection("p1"), core.TrackBundle{})
	require.NoError(t, err)

	old.Close()
	got, ok := reg.Get("p1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
	fresh.Close()
}

func TestCloseAll(t *testing.T) {
	reg := NewRegistry()
	var sessions []*session.Session
	for i := range 5 {
		peer := domain.ParticipantID(fmt.Sprintf("p%d", i))
		s, err := reg.RegisterOutbound(peer, coretest.NewConnection(peer), core.TrackBundle{})
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reg.CloseAll(ctx))

	assert.Equal(t, 0, reg.Len())
	for _, s := range sessions {
		assert.Equal(t, session.StateClosed, s.State())
	}
	assert.Empty(t, reg.Snapshot())
}
