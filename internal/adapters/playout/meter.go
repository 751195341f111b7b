package playout

import (
	"sync/atomic"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
)

// MeterSink is the headless speaker: it consumes packets and keeps counters.
type MeterSink struct {
	peer    domain.ParticipantID
	packets atomic.Uint64
	bytes   atomic.Uint64
	lastSeq atomic.Uint32
	lost    atomic.Uint64
	started atomic.Bool
}

func NewMeterSink(peer domain.ParticipantID) *MeterSink {
	return &MeterSink{peer: peer}
}

func (m *MeterSink) WriteRTP(pkt *rtp.Packet) error {
	if m.started.Swap(true) {
		expected := uint16(m.lastSeq.Load()) + 1
		if gap := pkt.SequenceNumber - expected; gap != 0 && gap < 1<<15 {
			m.lost.Add(uint64(gap))
		}
	}
	m.lastSeq.Store(uint32(pkt.SequenceNumber))
	m.packets.Add(1)
	m.bytes.Add(uint64(len(pkt.Payload)))
	return nil
}

func (m *MeterSink) Packets() uint64 { return m.packets.Load() }
func (m *MeterSink) Lost() uint64    { return m.lost.Load() }

func (m *MeterSink) Close() error {
	log.Info().
		Str("module", "playout").
		Str("peer", string(m.peer)).
		Uint64("packets", m.packets.Load()).
		Uint64("bytes", m.bytes.Load()).
		Uint64("lost", m.lost.Load()).
		Msg("audio output stats")
	return nil
}
