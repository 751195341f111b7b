// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxParticipantIDLen = 64

var (
	ErrParticipantIDEmpty   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
)

// ParticipantID is the opaque address of one connected peer. For the host it is
// also the room address.
type ParticipantID string

// NewParticipantID allocates a fresh id. Only the rendezvous broker calls it.
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

// ParseParticipantID validates an id received from the outside world.
func ParseParticipantID(raw string) (ParticipantID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrParticipantIDEmpty
	}
	if len(raw) > MaxParticipantIDLen {
		return "", ErrParticipantIDTooLong
	}
	return ParticipantID(raw), nil
}

func (id ParticipantID) String() string { return string(id) }

// Initial is the letter shown on a placeholder tile.
func (id ParticipantID) Initial() string {
	r, _ := utf8.DecodeRuneInString(string(id))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
