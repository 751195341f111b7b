package rtc

import (
	"context"
	"fmt"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Factory creates connections that share one pion API.
type Factory struct {
	api  *webrtc.API
	cfg  Config
	sink PacketSink
}

// NewFactory builds the pion API for cfg. sink may be nil.
func NewFactory(cfg Config, sink PacketSink) (*Factory, error) {
	api, err := NewAPI(cfg)
	if err != nil {
		return nil, err
	}
	return &Factory{api: api, cfg: cfg, sink: sink}, nil
}

// Offer creates an outgoing connection to peer and returns it with the offer
// SDP, ICE candidates included.
func (f *Factory) Offer(ctx context.Context, peer domain.ParticipantID, callID string, local core.TrackBundle) (*Connection, string, error) {
	c, err := newConnection(f.api, f.cfg, peer, callID, f.sink)
	if err != nil {
		return nil, "", err
	}
	dc, err := c.pc.CreateDataChannel(chatLabel, nil)
	if err != nil {
		_ = c.Close()
		return nil, "", fmt.Errorf("create chat channel: %w", err)
	}
	c.chat.bind(dc)

	if err := c.bindSenders(local); err != nil {
		_ = c.Close()
		return nil, "", err
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		_ = c.Close()
		return nil, "", fmt.Errorf("create offer: %w", err)
	}
	sdp, err := c.gather(ctx, offer)
	if err != nil {
		_ = c.Close()
		return nil, "", err
	}
	return c, sdp, nil
}

// Incoming wraps a remote offer. sendAnswer delivers our answer SDP once
// Answer is called.
func (f *Factory) Incoming(peer domain.ParticipantID, callID, offerSDP string, sendAnswer func(sdp string) error) (*Connection, error) {
	c, err := newConnection(f.api, f.cfg, peer, callID, f.sink)
	if err != nil {
		return nil, err
	}
	c.sendAnswer = sendAnswer
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set remote offer: %w", err)
	}
	return c, nil
}
