package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// CloseCode is the WebSocket close status used to carry a TransportError.
const CloseCode = 3000

// TransportError is an application-level reason to end a connection.
// Returning one from a Handler closes the socket with CloseCode, and the peer's Transport returns it from ReadJSON.
type TransportError struct {
	Code   int
	Reason string
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport error %d: %s", e.Code, e.Reason)
}

// Encode formats this as a WebSocket close reason.
func (e TransportError) Encode() string {
	return strconv.Itoa(e.Code) + "/" + e.Reason
}

// DecodeTransportError parses a close reason built by Encode.
// Reasons without a numeric code decode with a zero Code.
func DecodeTransportError(reason string) (e TransportError) {
	code, rest, ok := strings.Cut(reason, "/")
	if !ok {
		e.Reason = reason
		return e
	}
	c, err := strconv.Atoi(code)
	if err != nil {
		e.Reason = reason
		return e
	}
	e.Code = c
	e.Reason = rest
	return e
}
