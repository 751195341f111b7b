package signal

// Message types on /api/ws/signal.
const (
	TypeOpen   = "open"
	TypeOffer  = "offer"
	TypeAnswer = "answer"
	TypeHangup = "hangup"
	TypeError  = "error"
	TypePing   = "ping"
	TypePong   = "pong"
)

// Error codes carried by TypeError.
const (
	ErrCodePeerUnavailable = "peer_unavailable"
	ErrCodeBadPayload      = "bad_payload"
)

// Message is the single envelope of the signaling protocol. From is always
// stamped by the broker.
type Message struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	CallID string `json:"call_id,omitempty"`
	SDP    string `json:"sdp,omitempty"`
	Error  string `json:"error,omitempty"`
}
