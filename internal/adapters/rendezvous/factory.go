package rendezvous

import (
	"context"

	"github.com/dkeye/Meet/internal/adapters/rtc"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Conn is a media connection whose setup is driven by the client.
type Conn interface {
	core.ConnectionHandle
	AcceptAnswer(sdp string) error
	OnClosed(fn func())
}

// ConnFactory builds connections for the offer/answer exchange.
type ConnFactory interface {
	Offer(ctx context.Context, peer domain.ParticipantID, callID string, local core.TrackBundle) (Conn, string, error)
	Incoming(peer domain.ParticipantID, callID, offerSDP string, sendAnswer func(sdp string) error) (Conn, error)
}

type rtcFactory struct{ f *rtc.Factory }

// FromRTC adapts a pion connection factory.
func FromRTC(f *rtc.Factory) ConnFactory { return rtcFactory{f: f} }

func (r rtcFactory) Offer(ctx context.Context, peer domain.ParticipantID, callID string, local core.TrackBundle) (Conn, string, error) {
	c, sdp, err := r.f.Offer(ctx, peer, callID, local)
	if err != nil {
		return nil, "", err
	}
	return c, sdp, nil
}

func (r rtcFactory) Incoming(peer domain.ParticipantID, callID, offerSDP string, sendAnswer func(sdp string) error) (Conn, error) {
	c, err := r.f.Incoming(peer, callID, offerSDP, sendAnswer)
	if err != nil {
		return nil, err
	}
	return c, nil
}
