package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (b *Broker) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if b.opts.PingPeriod > 0 {
		t := time.NewTicker(b.opts.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("peer", string(c.id)).Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("peer", string(c.id)).Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("peer", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (b *Broker) readPump(ctx context.Context, c *WsSignalConn) {
	defer func() {
		log.Debug().Str("module", "signal").Str("peer", string(c.id)).Msg("readPump closing")
		b.unregister(c)
		c.Close()
	}()

	if b.opts.PingPeriod > 0 {
		wait := b.opts.PingPeriod * 2
		_ = c.conn.SetReadDeadline(time.Now().Add(wait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("peer", string(c.id)).Msg("readPump read error")
			}
			return
		}
		if b.opts.PingPeriod > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(b.opts.PingPeriod * 2))
		}
		b.handleSignal(c, data)
	}
}

func (b *Broker) handleSignal(c *WsSignalConn, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("peer", string(c.id)).Msg("bad json")
		b.sendJSON(c, Message{Type: TypeError, Error: ErrCodeBadPayload})
		return
	}
	b.metrics.Messages.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case TypePing:
		b.handlePing(c)
	case TypeOffer, TypeAnswer, TypeHangup:
		b.relay(c, msg)
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("unknown signal")
	}
}

func (b *Broker) sendJSON(c *WsSignalConn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return err
	}
	return c.TrySend(data)
}
