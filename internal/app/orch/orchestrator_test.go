package orch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/media"
	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/core/coretest"
	"github.com/dkeye/Meet/internal/core/mocks"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type noticeLog struct {
	mu  sync.Mutex
	all []Notice
}

func (n *noticeLog) Notify(x Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, x)
}

func (n *noticeLog) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []NoticeKind
	for _, x := range n.all {
		out = append(out, x.Kind)
	}
	return out
}

type fixture struct {
	orch     *Orchestrator
	rv       *coretest.Rendezvous
	dev      *mocks.MockDeviceProvider
	reg      *app.Registry
	proj     *presence.Projector
	notices  *noticeLog
	cam, mic *coretest.Track
}

func newFixture(t *testing.T, self domain.ParticipantID, withDevices bool) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		rv:      coretest.NewRendezvous(self),
		dev:     mocks.NewMockDeviceProvider(ctrl),
		proj:    presence.NewProjector(nil, nil),
		notices: &noticeLog{},
	}
	if withDevices {
		f.cam = coretest.NewTrack(string(self)+"-cam", domain.KindVideo)
		f.mic = coretest.NewTrack(string(self)+"-mic", domain.KindAudio)
		f.dev.EXPECT().OpenUserMedia(gomock.Any(), gomock.Any()).Return(f.cam, f.mic, nil)
	} else {
		f.dev.EXPECT().OpenUserMedia(gomock.Any(), gomock.Any()).Return(nil, nil, errors.New("NotFoundError"))
	}
	f.reg = app.NewRegistry(f.proj, SessionNotices(f.notices))
	f.orch = New(Deps{
		Registry:      f.reg,
		Media:         media.NewManager(f.dev),
		Coordinator:   NewCoordinator(f.reg, time.Second),
		Rendezvous:    f.rv,
		Notifier:      f.notices,
		BaseURL:       "https://meet.example/",
		MediaTimeout:  time.Second,
		AnswerTimeout: time.Second,
	})
	t.Cleanup(func() { _ = f.orch.Leave(context.Background()) })
	return f
}

func TestHostReturnsRoomLink(t *testing.T) {
	f := newFixture(t, "H1", true)
	id, link, err := f.orch.Host(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantID("H1"), id)
	assert.Equal(t, "https://meet.example/?room=H1", link)
	assert.Equal(t, id, f.orch.Self())

	host, ok, err := domain.RoomFromURL(link)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, host)
}

func TestHostWithoutDevicesWarnsAndContinues(t *testing.T) {
	f := newFixture(t, "H1", false)
	_, _, err := f.orch.Host(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []NoticeKind{NoticeDeviceUnavailable}, f.notices.kinds())

	conn := coretest.NewConnection("P1")
	require.NoError(t, f.rv.Incoming(conn))
	answered, ok := conn.Answered()
	require.True(t, ok)
	assert.Equal(t, core.TrackBundle{}, answered)
}

// H1 hosts, P1 joins with audio only, then turns a camera on.
func TestPlaceholderBecomesVideo(t *testing.T) {
	h := newFixture(t, "H1", true)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)

	p1 := coretest.NewConnection("P1")
	require.NoError(t, h.rv.Incoming(p1))

	answered, ok := p1.Answered()
	require.True(t, ok)
	assert.Same(t, h.cam, answered.Video)

	p1.EmitStream(false, true)
	require.Eventually(t, func() bool {
		e, ok := h.proj.Get("P1")
		return ok && e.Kind == domain.PresencePlaceholder && h.reg.Len() == 1
	}, time.Second, 5*time.Millisecond)
	s, _ := h.reg.Get("P1")
	require.Eventually(t, func() bool { return s.State().Live() && !s.RemoteHasVideo() }, time.Second, 5*time.Millisecond)

	p1.EmitStream(true, true)
	require.Eventually(t, func() bool {
		e, _ := h.proj.Get("P1")
		return e.Kind == domain.PresenceVideo
	}, time.Second, 5*time.Millisecond)
}

func TestJoinCallsHost(t *testing.T) {
	p := newFixture(t, "P1", true)
	require.NoError(t, p.orch.Join(context.Background(), "H1"))

	conn, offered, ok := p.rv.Outbound("H1")
	require.True(t, ok)
	assert.Same(t, p.cam, offered.Video)
	assert.Same(t, p.mic, offered.Audio)
	assert.Equal(t, 1, p.reg.Len())
	assert.Equal(t, 1, p.proj.Len())

	conn.Hangup()
	require.Eventually(t, func() bool { return p.reg.Len() == 0 && p.proj.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestJoinCallFailureIsConnectionError(t *testing.T) {
	p := newFixture(t, "P1", true)
	p.rv.CallErr = errors.New("peer_unavailable")

	err := p.orch.Join(context.Background(), "H1")
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Contains(t, p.notices.kinds(), NoticeConnectionError)
	assert.Equal(t, 0, p.reg.Len())
}

func TestInboundRaceKeepsOneSession(t *testing.T) {
	h := newFixture(t, "H1", true)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)

	a, b := coretest.NewConnection("P1"), coretest.NewConnection("P1")
	var wg sync.WaitGroup
	for _, c := range []*coretest.Connection{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.rv.Incoming(c)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.reg.Len())
	assert.Equal(t, 1, h.proj.Len())
	assert.True(t, a.Closed() != b.Closed(), "exactly one handle survives")
	_, aAnswered := a.Answered()
	_, bAnswered := b.Answered()
	assert.True(t, aAnswered != bAnswered, "the loser is never answered")
	assert.NotContains(t, h.notices.kinds(), NoticeConnectionError)
}

func TestAnswerFailureErrorsSession(t *testing.T) {
	h := newFixture(t, "H1", true)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)

	conn := coretest.NewConnection("P1")
	conn.AnswerErr = errors.New("sdp rejected")
	require.NoError(t, h.rv.Incoming(conn))

	assert.True(t, conn.Closed())
	assert.Equal(t, 0, h.reg.Len())
	assert.Equal(t, 0, h.proj.Len())
	assert.Equal(t, []NoticeKind{NoticeConnectionError}, h.notices.kinds())
}

func lastVideo(t *testing.T, c *coretest.Connection) string {
	t.Helper()
	tr, ok := c.Last(domain.KindVideo)
	if !ok || tr == nil {
		return ""
	}
	return tr.ID()
}

func TestScreenShareSwapAndRestoreBothPaths(t *testing.T) {
	for _, native := range []bool{false, true} {
		name := "explicit"
		if native {
			name = "native"
		}
		t.Run(name, func(t *testing.T) {
			h := newFixture(t, "H1", true)
			_, _, err := h.orch.Host(context.Background())
			require.NoError(t, err)

			peers := []*coretest.Connection{coretest.NewConnection("P1"), coretest.NewConnection("P2"), coretest.NewConnection("P3")}
			for _, c := range peers {
				require.NoError(t, h.rv.Incoming(c))
				c.EmitStream(true, true)
			}

			screen := coretest.NewTrack("screen", domain.KindVideo)
			h.dev.EXPECT().OpenDisplayMedia(gomock.Any(), false).Return(screen, nil, nil)
			require.NoError(t, h.orch.ShareScreen(context.Background(), false))
			for _, c := range peers {
				assert.Equal(t, "screen", lastVideo(t, c))
			}

			if native {
				screen.End()
			} else {
				require.True(t, h.orch.StopScreenShare())
			}
			for _, c := range peers {
				require.Eventually(t, func() bool { return lastVideo(t, c) == "H1-cam" }, time.Second, 5*time.Millisecond)
				a, _ := c.Last(domain.KindAudio)
				assert.Nil(t, a, "audio slot untouched without screen audio")
			}
			assert.True(t, screen.Stopped())
			assert.False(t, h.cam.Stopped())
		})
	}
}

func TestScreenShareDeniedNotifies(t *testing.T) {
	h := newFixture(t, "H1", true)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)

	h.dev.EXPECT().OpenDisplayMedia(gomock.Any(), true).Return(nil, nil, errors.New("NotAllowedError"))
	err = h.orch.ShareScreen(context.Background(), true)
	assert.ErrorIs(t, err, domain.ErrScreenShareDenied)
	assert.Equal(t, []NoticeKind{NoticeScreenShareDenied}, h.notices.kinds())
}

func TestToggleUsesEnableFlagOnly(t *testing.T) {
	h := newFixture(t, "H1", true)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)
	conn := coretest.NewConnection("P1")
	require.NoError(t, h.rv.Incoming(conn))

	on, err := h.orch.ToggleCamera()
	require.NoError(t, err)
	assert.False(t, on)
	on, err = h.orch.ToggleMicrophone()
	require.NoError(t, err)
	assert.False(t, on)

	assert.Empty(t, conn.Replacements())
	assert.False(t, h.cam.Enabled())
	assert.False(t, h.mic.Enabled())
}

func TestStartCameraLaterPushesTracks(t *testing.T) {
	h := newFixture(t, "H1", false)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)
	conn := coretest.NewConnection("P1")
	require.NoError(t, h.rv.Incoming(conn))

	cam := coretest.NewTrack("late-cam", domain.KindVideo)
	h.dev.EXPECT().OpenUserMedia(gomock.Any(), gomock.Any()).Return(cam, nil, nil)
	require.NoError(t, h.orch.StartCamera(context.Background()))

	assert.Equal(t, "late-cam", lastVideo(t, conn))
}

type fakeChannel struct {
	mu      sync.Mutex
	sent    []string
	handler func(domain.ParticipantID, string)
}

func (c *fakeChannel) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeChannel) OnMessage(h func(domain.ParticipantID, string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

type chatConn struct {
	*coretest.Connection
	ch *fakeChannel
}

func (c chatConn) Chat() core.MessageChannel { return c.ch }

func TestChatBroadcastAndReceive(t *testing.T) {
	var got []string
	h := newFixture(t, "H1", true)
	h.orch.OnChat = func(from domain.ParticipantID, text string) { got = append(got, string(from)+":"+text) }
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)

	withChat := chatConn{Connection: coretest.NewConnection("P1"), ch: &fakeChannel{}}
	require.NoError(t, h.rv.Incoming(withChat))
	require.NoError(t, h.rv.Incoming(coretest.NewConnection("P2")))

	n, err := h.orch.SendChat("hello")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"hello"}, withChat.ch.sent)

	withChat.ch.handler("P1", "hi")
	assert.Equal(t, []string{"P1:hi"}, got)
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := newFixture(t, "H1", true)
	_, _, err := h.orch.Host(context.Background())
	require.NoError(t, err)
	conns := []*coretest.Connection{coretest.NewConnection("P1"), coretest.NewConnection("P2")}
	for _, c := range conns {
		require.NoError(t, h.rv.Incoming(c))
	}

	require.NoError(t, h.orch.Leave(context.Background()))
	require.NoError(t, h.orch.Leave(context.Background()))

	for _, c := range conns {
		assert.True(t, c.Closed())
	}
	assert.Equal(t, 0, h.reg.Len())
	assert.Equal(t, 0, h.proj.Len())
	assert.True(t, h.rv.Closed())
	assert.True(t, h.cam.Stopped())

	late := coretest.NewConnection("P3")
	require.NoError(t, h.rv.Incoming(late))
	assert.True(t, late.Closed())
	assert.Equal(t, 0, h.reg.Len())

	_, _, err = h.orch.Host(context.Background())
	assert.ErrorIs(t, err, ErrLeft)
}
