package playout

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

type OutputState int32

const (
	OutputOk OutputState = iota
	OutputMuted
	OutputDelete
)

// Sink plays one participant's audio packets.
type Sink interface {
	WriteRTP(pkt *rtp.Packet) error
	Close() error
}

// Output is the audio element of one participant.
type Output struct {
	Sink  Sink
	state atomic.Int32
}

func NewOutput(s Sink) *Output {
	return &Output{Sink: s}
}

func (o *Output) State() OutputState {
	return OutputState(o.state.Load())
}

func (o *Output) MarkOk()     { o.state.Store(int32(OutputOk)) }
func (o *Output) MarkMuted()  { o.state.Store(int32(OutputMuted)) }
func (o *Output) MarkDelete() { o.state.Store(int32(OutputDelete)) }
