package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"
)

const (
	// Version is the only protocol version spoken in the hello handshake.
	Version = "1"

	// DefaultMaxPacketSize is the maximum size of a JSON packet the server accepts.
	DefaultMaxPacketSize = 32768

	// DefaultMaxReadSize is the maximum size of a JSON packet a dialed client accepts.
	// Snapshots of a whole list are sent as one packet, so this is much larger.
	DefaultMaxReadSize = 4 << 20

	// DefaultInMessageBuffer allows for this many packets to be pending before we close the connection.
	DefaultInMessageBuffer = 128

	// DefaultRateLimit is the number of messages per second we allow.
	DefaultRateLimit = 100

	// DefaultRateBurst is the maximum burst of messages we allow.
	DefaultRateBurst = 100
)

type hello struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// HandshakeResponse is the response sent to the client after a successful hello.
type HandshakeResponse struct {
	Ok            bool `json:"ok"`
	MaxPacketSize int  `json:"max_packet_size"`
	RateLimit     int  `json:"rate_limit"`
	RateBurst     int  `json:"rate_burst"`
}

// SocketOpts configures the WebSocket handler.
type SocketOpts struct {
	// MaxPacketSize is the maximum size of a JSON packet we accept.
	// Defaults to DefaultMaxPacketSize if zero.
	MaxPacketSize int

	// InMessageBuffer allows for this many packets to be pending before we close the connection.
	// Defaults to DefaultInMessageBuffer if zero.
	InMessageBuffer int

	// RateLimit is the number of messages per second we allow.
	// Defaults to DefaultRateLimit if zero.
	RateLimit int

	// RateBurst is the maximum burst of messages we allow.
	// Defaults to DefaultRateBurst if zero.
	RateBurst int

	// PingEvery sends a ping every ~duration.
	PingEvery time.Duration
}

func (o *SocketOpts) setDefaults() {
	if o.MaxPacketSize == 0 {
		o.MaxPacketSize = DefaultMaxPacketSize
	}
	if o.InMessageBuffer == 0 {
		o.InMessageBuffer = DefaultInMessageBuffer
	}
	if o.RateLimit == 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.RateBurst == 0 {
		o.RateBurst = DefaultRateBurst
	}
}

// Handler runs a single established Transport.
type Handler func(tr Transport) (err error)

// NewWebSocketHandler returns an http.Handler that upgrades requests to WebSocket connections and wraps them in a Transport.
// This always sets InsecureSkipVerify, you should wrap this with something that checks the origin.
// The handler is called once the client has completed the hello handshake.
// When it returns, the WebSocket connection is closed: a TransportError is sent to the peer, other errors are reported as internal.
func NewWebSocketHandler(opts SocketOpts, handle Handler) (h http.Handler) {
	opts.setDefaults()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return // websocket.Accept already writes an error response
		}
		c.SetReadLimit(int64(opts.MaxPacketSize))

		// Don't use the http.Request Context, see websocket.Accept.
		// readCtx outlives ctx so the pending read doesn't tear down the connection before Close.
		readCtx, readCancel := context.WithCancel(context.Background())

		ctx, cancel := context.WithCancelCause(readCtx)
		tr := &wsTransport{
			ctx:     ctx,
			cancel:  cancel,
			conn:    c,
			inCh:    make(chan []byte, opts.InMessageBuffer),
			limiter: rate.NewLimiter(rate.Limit(opts.RateLimit+1), opts.RateBurst+1), // +1 for hello
		}

		context.AfterFunc(ctx, func() {
			code, reason := closeFor(context.Cause(ctx))
			c.Close(code, reason)
			readCancel()
		})

		if opts.PingEvery > 0 {
			go tr.runPing(opts.PingEvery)
		}

		go func() {
			cancel(tr.runRead(readCtx))
		}()

		cancel(tr.run(opts, handle))
	})
}

// closeFor converts the cause of a finished connection to a WebSocket close status.
func closeFor(err error) (code websocket.StatusCode, reason string) {
	var transportErr TransportError
	var closeErr websocket.CloseError

	switch {
	case errors.As(err, &transportErr):
		return CloseCode, transportErr.Encode()
	case errors.As(err, &closeErr):
		return closeErr.Code, closeErr.Reason
	case err == nil || errors.Is(err, context.Canceled):
		return websocket.StatusNormalClosure, ""
	default:
		return websocket.StatusInternalError, "" // don't emit internal errors
	}
}

type wsTransport struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	conn    *websocket.Conn
	inCh    chan []byte
	limiter *rate.Limiter
}

func (t *wsTransport) run(opts SocketOpts, handle Handler) (err error) {
	var h hello
	if err = t.ReadJSON(&h); err != nil {
		return websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: "failed to read hello"}
	}
	if h.Type != "hello" || h.Version != Version {
		return websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: "invalid hello or version"}
	}

	resp := HandshakeResponse{
		Ok:            true,
		MaxPacketSize: opts.MaxPacketSize,
		RateLimit:     opts.RateLimit,
		RateBurst:     opts.RateBurst,
	}
	if err = t.WriteJSON(resp); err != nil {
		return err
	}
	return handle(t)
}

func (t *wsTransport) runPing(every time.Duration) {
	timer := time.NewTimer(skew(every))
	defer timer.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-timer.C:
		}
		t.conn.Ping(t.ctx)
		timer.Reset(skew(every))
	}
}

func (t *wsTransport) runRead(ctx context.Context) (err error) {
	for {
		typ, b, err := t.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			return websocket.CloseError{Code: websocket.StatusUnsupportedData, Reason: "unexpected message type"}
		}
		if !t.limiter.Allow() {
			return websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: "rate limit exceeded"}
		}

		select {
		case t.inCh <- b:
		default:
			return websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: "input channel full"}
		}
	}
}

func (t *wsTransport) Context() (ctx context.Context) {
	return t.ctx
}

func (t *wsTransport) ReadJSON(v any) (err error) {
	select {
	case b := <-t.inCh:
		err = json.Unmarshal(b, v)
		if err != nil {
			t.cancel(err)
		}
		return err
	case <-t.ctx.Done():
		return context.Cause(t.ctx)
	}
}

func (t *wsTransport) WriteJSON(v any) (err error) {
	err = wsjson.Write(t.ctx, t.conn, v)
	if err != nil {
		t.cancel(err)
	}
	return err
}
