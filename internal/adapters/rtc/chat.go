package rtc

import (
	"errors"
	"sync"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const chatLabel = "chat"

var ErrChatNotReady = errors.New("chat channel not open")

// Chat is the reliable ordered text channel of one connection. The offering
// side creates it; the answering side gets it from the remote.
type Chat struct {
	peer domain.ParticipantID

	mu      sync.RWMutex
	dc      *webrtc.DataChannel
	handler func(from domain.ParticipantID, text string)
}

var _ core.MessageChannel = (*Chat)(nil)

func newChat(peer domain.ParticipantID) *Chat {
	return &Chat{peer: peer}
}

func (c *Chat) bind(dc *webrtc.DataChannel) {
	if dc.Label() != chatLabel {
		return
	}
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		log.Debug().Str("module", "rtc.chat").Str("peer", string(c.peer)).Msg("chat open")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !msg.IsString {
			return
		}
		c.mu.RLock()
		h := c.handler
		c.mu.RUnlock()
		if h != nil {
			h(c.peer, string(msg.Data))
		}
	})
}

func (c *Chat) Send(text string) error {
	c.mu.RLock()
	dc := c.dc
	c.mu.RUnlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChatNotReady
	}
	return dc.SendText(text)
}

func (c *Chat) OnMessage(handler func(from domain.ParticipantID, text string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}
