package core

import (
	"context"

	"github.com/dkeye/Meet/internal/domain"
)

// Track is a local capture track. Only the media manager opens and stops
// tracks; sessions hold read references.
type Track interface {
	ID() string
	Kind() domain.TrackKind
	Enabled() bool
	// SetEnabled pauses or resumes sending without touching the device.
	SetEnabled(enabled bool)
	// Stop releases the device. Safe to call more than once.
	Stop()
	// Ended is closed when the track stops, either by Stop or by the source.
	Ended() <-chan struct{}
}

// TrackBundle is what gets offered or answered on a connection. Either field
// may be nil.
type TrackBundle struct {
	Video Track
	Audio Track
}

// Get returns the bundle's track of the given kind.
func (b TrackBundle) Get(kind domain.TrackKind) Track {
	if kind == domain.KindVideo {
		return b.Video
	}
	return b.Audio
}

// DeviceProvider opens capture devices (getUserMedia / getDisplayMedia).
type DeviceProvider interface {
	// OpenUserMedia opens camera and microphone. Either return may be nil when
	// that device is missing; err is set when neither could be opened.
	OpenUserMedia(ctx context.Context, c domain.Constraints) (video, audio Track, err error)
	// OpenDisplayMedia opens screen capture, with system audio when asked and
	// available.
	OpenDisplayMedia(ctx context.Context, includeAudio bool) (video, audio Track, err error)
}

// SameTrack reports whether a and b refer to the same track (nil equals nil).
func SameTrack(a, b Track) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}
