package core

import "github.com/dkeye/Meet/internal/domain"

// MessageChannel is a reliable ordered text channel to one participant.
type MessageChannel interface {
	Send(text string) error
	OnMessage(handler func(from domain.ParticipantID, text string))
}

// ChatCapable is implemented by handles that carry a message channel.
type ChatCapable interface {
	Chat() MessageChannel
}
