package rendezvous

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (c *Client) writePump(ws *websocket.Conn) {
	var ping <-chan time.Time
	if c.opts.PingEvery > 0 {
		t := time.NewTicker(c.opts.PingEvery)
		defer t.Stop()
		ping = t.C
	}
	for {
		select {
		case <-c.done:
			return
		case <-ping:
			if err := c.write(signal.Message{Type: signal.TypePing}); err != nil {
				log.Debug().Err(err).Str("module", "rendezvous").Msg("ping")
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "rendezvous").Msg("write")
				return
			}
		}
	}
}

// readPump dispatches broker messages until the socket drops. Established
// media connections outlive the broker connection.
func (c *Client) readPump(ws *websocket.Conn) {
	defer c.finish()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "rendezvous").Msg("broker connection lost")
			}
			return
		}
		var msg signal.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Str("module", "rendezvous").Msg("bad json")
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg signal.Message) {
	switch msg.Type {
	case signal.TypeOffer:
		c.onOffer(msg)
	case signal.TypeAnswer, signal.TypeError:
		cl, ok := c.lookup(msg.CallID)
		if !ok {
			log.Debug().Str("module", "rendezvous").Str("type", msg.Type).Str("call_id", msg.CallID).Msg("reply for unknown call")
			return
		}
		select {
		case cl.reply <- msg:
		default:
		}
	case signal.TypeHangup:
		cl, ok := c.take(msg.CallID)
		if !ok {
			return
		}
		log.Info().Str("module", "rendezvous").Str("peer", msg.From).Str("call_id", msg.CallID).Msg("remote hangup")
		if cl.reply != nil {
			select {
			case cl.reply <- msg:
			default:
			}
		}
		_ = cl.conn.Close()
	case signal.TypePong:
	default:
		log.Warn().Str("module", "rendezvous").Str("type", msg.Type).Msg("unknown message")
	}
}

func (c *Client) onOffer(msg signal.Message) {
	from, err := domain.ParseParticipantID(msg.From)
	if err != nil || msg.CallID == "" {
		log.Warn().Str("module", "rendezvous").Msg("offer without sender")
		return
	}
	callID := msg.CallID
	conn, err := c.factory.Incoming(from, callID, msg.SDP, func(sdp string) error {
		return c.write(signal.Message{Type: signal.TypeAnswer, To: string(from), CallID: callID, SDP: sdp})
	})
	if err != nil {
		log.Error().Err(err).Str("module", "rendezvous").Str("peer", string(from)).Msg("incoming offer")
		_ = c.write(signal.Message{Type: signal.TypeHangup, To: string(from), CallID: callID})
		return
	}
	c.track(callID, &call{conn: conn}, from)

	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		log.Warn().Str("module", "rendezvous").Str("peer", string(from)).Msg("no incoming handler, rejecting")
		_ = conn.Close()
		return
	}
	log.Info().Str("module", "rendezvous").Str("peer", string(from)).Str("call_id", callID).Msg("incoming call")
	go h(conn)
}
