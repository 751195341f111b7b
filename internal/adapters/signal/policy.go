package signal

import "github.com/dkeye/Meet/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickPeer
	DropMessage
)

// Policy decides what happens to a peer whose send queue is full.
type Policy interface {
	OnBackPressure(peer domain.ParticipantID) BackpressureAction
}

// SimplePolicy disconnects slow peers; a peer that misses signaling messages
// cannot complete calls anyway.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.ParticipantID) BackpressureAction {
	return KickPeer
}
