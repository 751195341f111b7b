package rtc

import (
	"fmt"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// Config shapes every peer connection the factory creates.
type Config struct {
	ICEServers []string
	// StaleAfter is how long a remote track may go without RTP before it
	// counts as absent (a disabled camera stops sending).
	StaleAfter time.Duration
	// ProbeEvery is how often remote media presence is re-evaluated.
	ProbeEvery time.Duration
	// Loopback admits 127.0.0.1 host candidates; used when both peers share a host.
	Loopback bool
}

func DefaultConfig() Config {
	return Config{
		ICEServers: []string{"stun:stun.l.google.com:19302"},
		StaleAfter: 2 * time.Second,
		ProbeEvery: 500 * time.Millisecond,
	}
}

func (c Config) webrtc() webrtc.Configuration {
	if len(c.ICEServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: c.ICEServers}},
	}
}

// NewAPI builds a pion API with the default codecs (VP8, Opus among them) and
// the default interceptors (NACK, RTCP reports, TWCC).
func NewAPI(cfg Config) (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	se := webrtc.SettingEngine{}
	if cfg.Loopback {
		se.SetIncludeLoopbackCandidate(true)
	}
	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
		webrtc.WithSettingEngine(se),
	), nil
}
