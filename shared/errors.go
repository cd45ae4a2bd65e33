package shared

import "errors"

var (
	ErrNoLogger            = errors.New("no logger provided")
	ErrNoConfig            = errors.New("no config provided")
	ErrNoEndpoint          = errors.New("no endpoint provided")
	ErrNoAPIKey            = errors.New("no API key provided")
	ErrSessionActive       = errors.New("session already active")
	ErrSessionNotConnected = errors.New("session not connected")
	ErrConnClosed          = errors.New("connection closed")
	ErrHandshakeTimeout    = errors.New("session configuration timed out")
)
