// Package media owns the local capture devices and decides which of them is
// sent.
package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// SourceListener hears every change of the active outgoing tracks.
type SourceListener func(core.TrackBundle)

type Option func(*Manager)

func WithSourceListener(fn SourceListener) Option {
	return func(m *Manager) { m.listener = fn }
}

// Manager is the only owner of capture devices. Sessions get read references
// through Outgoing and never stop a track themselves.
type Manager struct {
	provider core.DeviceProvider
	listener SourceListener

	// opMu orders source changes with their notifications.
	opMu sync.Mutex
	mu   sync.RWMutex

	state    State
	released bool
	closed   chan struct{}
}

func NewManager(provider core.DeviceProvider, opts ...Option) *Manager {
	m := &Manager{provider: provider, closed: make(chan struct{})}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSourceListener replaces the listener. Used when the listener needs the
// manager to exist first.
func (m *Manager) SetSourceListener(fn SourceListener) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.listener = fn
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Outgoing() core.TrackBundle {
	return m.State().Outgoing()
}

// AcquireCameraAndMic opens whichever of camera and microphone is not open yet.
// It fails with ErrDeviceUnavailable only when it ends with neither device.
func (m *Manager) AcquireCameraAndMic(ctx context.Context, c domain.Constraints) (State, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.State()
	if m.isReleased() {
		return cur, fmt.Errorf("%w: media released", domain.ErrDeviceUnavailable)
	}
	if cur.Camera != nil && cur.Microphone != nil {
		return cur, nil
	}

	video, audio, err := m.provider.OpenUserMedia(ctx, c)
	if video == nil && audio == nil {
		if err == nil {
			err = domain.ErrDeviceUnavailable
		}
		log.Warn().Str("module", "media").Err(err).Msg("no camera or microphone")
		if cur.HasMedia() {
			return cur, nil
		}
		return cur, fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}

	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		stopAll(video, audio)
		return State{}, fmt.Errorf("%w: media released", domain.ErrDeviceUnavailable)
	}
	if video != nil {
		if m.state.Camera == nil {
			m.state.Camera = video
			if m.state.ActiveVideo == domain.VideoNone {
				m.state.ActiveVideo = domain.VideoCamera
			}
		} else {
			video.Stop()
		}
	}
	if audio != nil {
		if m.state.Microphone == nil {
			m.state.Microphone = audio
		} else {
			audio.Stop()
		}
	}
	next := m.state
	m.mu.Unlock()

	ev := log.Info()
	if next.Camera == nil || next.Microphone == nil {
		ev = log.Warn().AnErr("cause", err)
	}
	ev.Str("module", "media").Bool("camera", next.Camera != nil).Bool("microphone", next.Microphone != nil).Msg("user media acquired")

	m.notify(cur.Outgoing(), next.Outgoing())
	return next, nil
}

// ToggleCameraEnabled flips the camera's enabled flag and returns the new value.
// The device stays open.
func (m *Manager) ToggleCameraEnabled() (bool, error) {
	return m.toggle(domain.KindVideo)
}

func (m *Manager) ToggleMicrophoneEnabled() (bool, error) {
	return m.toggle(domain.KindAudio)
}

func (m *Manager) toggle(kind domain.TrackKind) (bool, error) {
	m.mu.RLock()
	t := m.state.Camera
	if kind == domain.KindAudio {
		t = m.state.Microphone
	}
	m.mu.RUnlock()

	if t == nil {
		return false, fmt.Errorf("%w: no %s track", domain.ErrDeviceUnavailable, kind)
	}
	enabled := !t.Enabled()
	t.SetEnabled(enabled)
	log.Info().Str("module", "media").Str("kind", kind.String()).Bool("enabled", enabled).Msg("track toggled")
	return enabled, nil
}

// StartScreenShare makes screen capture the active outgoing video, and its
// audio the outgoing audio when there is any. While already sharing it returns
// the current screen tracks.
func (m *Manager) StartScreenShare(ctx context.Context, includeAudio bool) (video, audio core.Track, err error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cur := m.State()
	if cur.ScreenVideo != nil {
		return cur.ScreenVideo, cur.ScreenAudio, nil
	}
	if m.isReleased() {
		return nil, nil, fmt.Errorf("%w: media released", domain.ErrScreenShareDenied)
	}

	video, audio, err = m.provider.OpenDisplayMedia(ctx, includeAudio)
	if err != nil || video == nil {
		stopAll(video, audio)
		if err == nil {
			err = fmt.Errorf("no screen video")
		}
		log.Warn().Str("module", "media").Err(err).Msg("screen share denied")
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrScreenShareDenied, err)
	}
	if !includeAudio && audio != nil {
		audio.Stop()
		audio = nil
	}

	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		stopAll(video, audio)
		return nil, nil, fmt.Errorf("%w: media released", domain.ErrScreenShareDenied)
	}
	m.state.ScreenVideo, m.state.ScreenAudio = video, audio
	m.state.ActiveVideo = domain.VideoScreen
	if audio != nil {
		m.state.ActiveAudio = domain.AudioScreen
	}
	next := m.state
	m.mu.Unlock()

	go m.watchScreen(video)

	log.Info().Str("module", "media").Str("video", video.ID()).Bool("audio", audio != nil).Msg("screen share started")
	m.notify(cur.Outgoing(), next.Outgoing())
	return video, audio, nil
}

// StopScreenShare releases the screen tracks and restores camera and
// microphone. It reports whether a share was running.
func (m *Manager) StopScreenShare() bool {
	m.mu.RLock()
	t := m.state.ScreenVideo
	m.mu.RUnlock()
	if t == nil {
		return false
	}
	return m.endScreenShare(t, "stopped")
}

// watchScreen turns the source ending on its own into the same cleanup as an
// explicit stop.
func (m *Manager) watchScreen(t core.Track) {
	select {
	case <-t.Ended():
		m.endScreenShare(t, "ended by source")
	case <-m.closed:
	}
}

// endScreenShare only acts while t is still the current screen track, so the
// explicit and native paths run it at most once per share.
func (m *Manager) endScreenShare(t core.Track, reason string) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state.ScreenVideo == nil || !core.SameTrack(m.state.ScreenVideo, t) {
		m.mu.Unlock()
		return false
	}
	prev := m.state
	stopAll(m.state.ScreenVideo, m.state.ScreenAudio)
	m.state.ScreenVideo, m.state.ScreenAudio = nil, nil
	m.state.ActiveVideo = domain.VideoNone
	if m.state.Camera != nil {
		m.state.ActiveVideo = domain.VideoCamera
	}
	m.state.ActiveAudio = domain.AudioMicrophone
	next := m.state
	m.mu.Unlock()

	log.Info().Str("module", "media").Str("reason", reason).Str("restored", next.ActiveVideo.String()).Msg("screen share ended")
	m.notify(prev.Outgoing(), next.Outgoing())
	return true
}

// Release stops every device. Idempotent.
func (m *Manager) Release() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	s := m.state
	m.state = State{}
	close(m.closed)
	m.mu.Unlock()

	stopAll(s.Camera, s.Microphone, s.ScreenVideo, s.ScreenAudio)
	log.Info().Str("module", "media").Msg("devices released")
}

func (m *Manager) isReleased() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.released
}

// notify must be called with opMu held.
func (m *Manager) notify(prev, next core.TrackBundle) {
	if m.listener == nil {
		return
	}
	if core.SameTrack(prev.Video, next.Video) && core.SameTrack(prev.Audio, next.Audio) {
		return
	}
	m.listener(next)
}

func stopAll(tracks ...core.Track) {
	for _, t := range tracks {
		if t != nil {
			t.Stop()
		}
	}
}
