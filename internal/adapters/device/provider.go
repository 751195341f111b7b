// Package device provides capture devices backed by media files: IVF (VP8)
// for camera and screen, Ogg (Opus) for microphone and system audio.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNoDevice = errors.New("no device configured")

// Files names the media behind each device. An empty path means the device is
// absent.
type Files struct {
	Camera      string
	Microphone  string
	Screen      string
	ScreenAudio string
	// LoopCamera replays camera and microphone files; screen capture always
	// ends with its file.
	LoopCamera bool
}

type Provider struct {
	files Files
}

var _ core.DeviceProvider = (*Provider)(nil)

func NewProvider(files Files) *Provider {
	return &Provider{files: files}
}

var (
	vp8  = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	opus = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
)

func (p *Provider) OpenUserMedia(ctx context.Context, c domain.Constraints) (video, audio core.Track, err error) {
	log.Debug().Str("module", "device").Str("facing", c.FacingMode).Int("width", c.Width).Int("height", c.Height).Msg("open user media")

	var errs []error
	if v, err := p.openVideo(ctx, "camera", p.files.Camera, p.files.LoopCamera); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	} else {
		video = v
	}
	if a, err := p.openAudio(ctx, "microphone", p.files.Microphone, p.files.LoopCamera); err != nil {
		errs = append(errs, fmt.Errorf("microphone: %w", err))
	} else {
		audio = a
	}
	return video, audio, errors.Join(errs...)
}

func (p *Provider) OpenDisplayMedia(ctx context.Context, includeAudio bool) (video, audio core.Track, err error) {
	v, err := p.openVideo(ctx, "screen", p.files.Screen, false)
	if err != nil {
		return nil, nil, fmt.Errorf("screen: %w", err)
	}
	if includeAudio {
		if a, err := p.openAudio(ctx, "screen-audio", p.files.ScreenAudio, false); err != nil {
			log.Info().Str("module", "device").Err(err).Msg("screen share without system audio")
		} else {
			audio = a
		}
	}
	return v, audio, nil
}

func (p *Provider) openVideo(ctx context.Context, name, path string, loop bool) (core.Track, error) {
	return p.openTrack(ctx, name, path, domain.KindVideo, vp8, func() (frameSource, error) { return openIVF(path) }, loop)
}

func (p *Provider) openAudio(ctx context.Context, name, path string, loop bool) (core.Track, error) {
	return p.openTrack(ctx, name, path, domain.KindAudio, opus, func() (frameSource, error) { return openOgg(path) }, loop)
}

func (p *Provider) openTrack(ctx context.Context, name, path string, kind domain.TrackKind, codec webrtc.RTPCodecCapability, open opener, loop bool) (core.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrNoDevice
	}
	t, err := newTrack(name+"-"+uuid.NewString()[:8], kind, codec, open, loop)
	if err != nil {
		return nil, err
	}
	if err := t.start(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "device").Str("track", t.ID()).Str("file", path).Msg("device opened")
	return t, nil
}
