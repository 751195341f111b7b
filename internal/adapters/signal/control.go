package signal

func (b *Broker) handlePing(c *WsSignalConn) {
	_ = b.sendJSON(c, Message{Type: TypePong})
}
