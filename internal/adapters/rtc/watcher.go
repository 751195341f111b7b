package rtc

import (
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/pion/webrtc/v4"
)

// watch records RTP arrival per kind and hands audio to the playout sink.
func (c *Connection) watch(track *webrtc.TrackRemote) {
	video := track.Kind() == webrtc.RTPCodecTypeVideo
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			c.logger.Debug().Err(err).Str("kind", track.Kind().String()).Msg("remote track ended")
			return
		}
		now := time.Now().UnixNano()
		if video {
			c.lastVideo.Store(now)
			continue
		}
		c.lastAudio.Store(now)
		if c.sink != nil {
			c.sink.Deliver(c.peer, pkt)
		}
	}
}

// startProbe reports the remote media once connected and again whenever a
// kind starts or stops flowing.
func (c *Connection) startProbe() {
	if c.probing.Swap(true) {
		return
	}
	go func() {
		every := c.cfg.ProbeEvery
		if every <= 0 {
			every = 500 * time.Millisecond
		}
		t := time.NewTicker(every)
		defer t.Stop()

		last := c.remoteMedia(time.Now())
		c.emit(core.ConnectionEvent{Type: core.EventStream, Media: last})
		for {
			select {
			case <-c.ctx.Done():
				return
			case now := <-t.C:
				m := c.remoteMedia(now)
				if m != last {
					last = m
					c.emit(core.ConnectionEvent{Type: core.EventStream, Media: m})
				}
			}
		}
	}()
}

func (c *Connection) remoteMedia(now time.Time) core.RemoteMedia {
	stale := c.cfg.StaleAfter
	if stale <= 0 {
		stale = 2 * time.Second
	}
	fresh := func(ns int64) bool {
		return ns != 0 && now.Sub(time.Unix(0, ns)) < stale
	}
	return core.RemoteMedia{HasVideo: fresh(c.lastVideo.Load()), HasAudio: fresh(c.lastAudio.Load())}
}
