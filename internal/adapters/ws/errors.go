package ws

import "errors"

// Sentinel kinds for transport errors.
var (
	// ErrDial indicates the upstream feed could not be reached.
	ErrDial = errors.New("websocket dial failed")

	// ErrConnectionLost indicates the upstream closed or broke the connection.
	ErrConnectionLost = errors.New("websocket connection lost")

	// ErrHubClosed indicates the hub no longer accepts clients or messages.
	ErrHubClosed = errors.New("hub closed")
)
