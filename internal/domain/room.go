package domain

import (
	"fmt"
	"net/url"
)

// RoomQueryParam carries the host's participant id in a meeting link.
const RoomQueryParam = "room"

// RoomFromURL extracts the room address from a meeting link. ok is false when the
// link has no room parameter, which means the caller should host.
func RoomFromURL(raw string) (host ParticipantID, ok bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse meeting url: %w", err)
	}
	v := u.Query().Get(RoomQueryParam)
	if v == "" {
		return "", false, nil
	}
	host, err = ParseParticipantID(v)
	if err != nil {
		return "", false, err
	}
	return host, true, nil
}

// RoomLink builds the link participants use to join host's meeting.
func RoomLink(base string, host ParticipantID) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(RoomQueryParam, host.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}
