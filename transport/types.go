// Package transport carries JSON packets between a feed server and its mirrors.
// It includes a WebSocket implementation for both ends and an in-memory pair for tests.
package transport

import (
	"context"
)

type Transport interface {
	// ReadJSON reads the next packet available into the given target.
	ReadJSON(v any) error

	// WriteJSON sends the given packet.
	// This may block until the peer has room for it.
	WriteJSON(v any) error

	// Context returns a context which is Done when the underlying connection has closed.
	Context() context.Context
}
