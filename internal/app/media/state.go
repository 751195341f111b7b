package media

import (
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// State is a copy of the local capture state. Camera capture may be running
// while the screen is the active outgoing video.
type State struct {
	Camera      core.Track
	Microphone  core.Track
	ScreenVideo core.Track
	ScreenAudio core.Track
	ActiveVideo domain.VideoSource
	ActiveAudio domain.AudioSource
}

// Outgoing resolves the active sources into the tracks to send.
func (s State) Outgoing() core.TrackBundle {
	var b core.TrackBundle
	switch s.ActiveVideo {
	case domain.VideoScreen:
		b.Video = s.ScreenVideo
	case domain.VideoCamera:
		b.Video = s.Camera
	}
	if s.ActiveAudio == domain.AudioScreen && s.ScreenAudio != nil {
		b.Audio = s.ScreenAudio
	} else {
		b.Audio = s.Microphone
	}
	return b
}

func (s State) Sharing() bool { return s.ScreenVideo != nil }

// HasMedia reports whether any user-media device is open.
func (s State) HasMedia() bool { return s.Camera != nil || s.Microphone != nil }
