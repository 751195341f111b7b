package device

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// frameSource yields encoded frames with their play duration. io.EOF ends it.
type frameSource interface {
	Next() ([]byte, time.Duration, error)
	Close() error
}

type opener func() (frameSource, error)

// Track is a capture track fed from a media file. It implements core.Track and
// rtc.LocalTrack.
type Track struct {
	id     string
	kind   domain.TrackKind
	local  *webrtc.TrackLocalStaticSample
	open   opener
	loop   bool
	logger zerolog.Logger

	enabled atomic.Bool
	ended   chan struct{}
	endOnce sync.Once
	cancel  context.CancelFunc
	samples atomic.Uint64
}

func newTrack(id string, kind domain.TrackKind, codec webrtc.RTPCodecCapability, open opener, loop bool) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codec, id, "meet")
	if err != nil {
		return nil, err
	}
	t := &Track{
		id:     id,
		kind:   kind,
		local:  local,
		open:   open,
		loop:   loop,
		ended:  make(chan struct{}),
		logger: log.With().Str("module", "device").Str("track", id).Logger(),
	}
	t.enabled.Store(true)
	return t, nil
}

func (t *Track) ID() string               { return t.id }
func (t *Track) Kind() domain.TrackKind   { return t.kind }
func (t *Track) Enabled() bool            { return t.enabled.Load() }
func (t *Track) SetEnabled(enabled bool)  { t.enabled.Store(enabled) }
func (t *Track) Ended() <-chan struct{}   { return t.ended }
func (t *Track) Local() webrtc.TrackLocal { return t.local }

// Samples is how many samples were written while enabled.
func (t *Track) Samples() uint64 { return t.samples.Load() }

func (t *Track) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.end()
}

func (t *Track) end() {
	t.endOnce.Do(func() { close(t.ended) })
}

// start opens the source once so a bad file fails at acquisition, then pumps
// samples until stopped or, when not looping, until the file ends.
func (t *Track) start() error {
	src, err := t.open()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.pump(ctx, src)
	return nil
}

func (t *Track) pump(ctx context.Context, src frameSource) {
	defer t.end()
	defer func() {
		if src != nil {
			_ = src.Close()
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		data, d, err := src.Next()
		if errors.Is(err, io.EOF) {
			if !t.loop {
				t.logger.Info().Msg("source ended")
				return
			}
			_ = src.Close()
			next, err := t.open()
			if err != nil {
				src = nil
				t.logger.Error().Err(err).Msg("reopen source")
				return
			}
			src = next
			timer.Reset(0)
			continue
		}
		if err != nil {
			t.logger.Error().Err(err).Msg("read frame")
			return
		}

		if t.enabled.Load() {
			if err := t.local.WriteSample(media.Sample{Data: data, Duration: d}); err != nil {
				t.logger.Warn().Err(err).Msg("write sample")
			} else {
				t.samples.Add(1)
			}
		}
		timer.Reset(d)
	}
}
