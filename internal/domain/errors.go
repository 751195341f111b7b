package domain

import "errors"

var (
	// ErrDeviceUnavailable: camera/mic/screen denied or absent. Recovered locally.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrDuplicateConnection: a session for this participant already exists.
	ErrDuplicateConnection = errors.New("duplicate connection")
	// ErrConnection: transport failure mid-call.
	ErrConnection = errors.New("connection error")
	// ErrSenderNotReady: the session can no longer replace tracks.
	ErrSenderNotReady = errors.New("sender not ready")
	// ErrScreenShareDenied: screen capture refused; nothing changes.
	ErrScreenShareDenied = errors.New("screen share denied")
)
