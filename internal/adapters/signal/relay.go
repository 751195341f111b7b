package signal

import (
	"errors"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// relay forwards offer, answer and hangup to their addressee with From set to
// the sender's id. Senders learn about unknown addressees through an error
// message carrying the call id.
func (b *Broker) relay(from *WsSignalConn, msg Message) {
	to, err := domain.ParseParticipantID(msg.To)
	if err != nil || msg.CallID == "" {
		log.Warn().Str("module", "signal").Str("peer", string(from.id)).Str("type", msg.Type).Msg("bad relay payload")
		_ = b.sendJSON(from, Message{Type: TypeError, CallID: msg.CallID, Error: ErrCodeBadPayload})
		return
	}

	target, ok := b.lookup(to)
	if !ok || to == from.id {
		b.unavailable(from, msg, "offline")
		return
	}

	out := Message{Type: msg.Type, From: string(from.id), CallID: msg.CallID, SDP: msg.SDP}
	err = b.sendJSON(target, out)
	switch {
	case err == nil:
		log.Debug().Str("module", "signal").Str("peer", string(from.id)).Str("to", string(to)).Str("type", msg.Type).Msg("relayed")
	case errors.Is(err, ErrBackpressure):
		switch b.opts.Policy.OnBackPressure(to) {
		case KickPeer:
			log.Warn().Str("module", "signal").Str("peer", string(to)).Msg("slow peer kicked")
			target.Close()
			b.unavailable(from, msg, "kicked")
		case DropMessage, NoAction:
			b.metrics.Dropped.WithLabelValues("backpressure").Inc()
		}
	default:
		b.unavailable(from, msg, "closed")
	}
}

func (b *Broker) unavailable(from *WsSignalConn, msg Message, reason string) {
	b.metrics.Dropped.WithLabelValues(reason).Inc()
	if msg.Type == TypeHangup {
		return
	}
	_ = b.sendJSON(from, Message{Type: TypeError, CallID: msg.CallID, Error: ErrCodePeerUnavailable})
}
