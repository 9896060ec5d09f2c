package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// DialOpts configures Dial.
type DialOpts struct {
	// MaxPacketSize is the maximum size of a JSON packet we accept from the server.
	// Defaults to DefaultMaxReadSize if zero.
	MaxPacketSize int

	// HTTPHeader is sent with the upgrade request.
	HTTPHeader http.Header
}

// ErrRejected is returned by Dial when the server answers the hello without Ok.
var ErrRejected = errors.New("handshake rejected")

// Dial connects to a server built with NewWebSocketHandler and performs the hello handshake.
// The returned Transport is closed when ctx is done.
func Dial(ctx context.Context, url string, opts DialOpts) (tr Transport, resp HandshakeResponse, err error) {
	if opts.MaxPacketSize == 0 {
		opts.MaxPacketSize = DefaultMaxReadSize
	}

	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: opts.HTTPHeader})
	if err != nil {
		return nil, resp, err
	}
	c.SetReadLimit(int64(opts.MaxPacketSize))

	connCtx, cancel := context.WithCancelCause(ctx)
	ct := &clientTransport{ctx: connCtx, cancel: cancel, conn: c}
	context.AfterFunc(connCtx, func() {
		c.Close(websocket.StatusNormalClosure, "")
	})

	if err = ct.WriteJSON(hello{Type: "hello", Version: Version}); err != nil {
		return nil, resp, err
	}
	if err = ct.ReadJSON(&resp); err != nil {
		return nil, resp, err
	}
	if !resp.Ok {
		cancel(ErrRejected)
		return nil, resp, ErrRejected
	}
	return ct, resp, nil
}

type clientTransport struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	conn   *websocket.Conn
}

func (t *clientTransport) Context() (ctx context.Context) {
	return t.ctx
}

func (t *clientTransport) ReadJSON(v any) (err error) {
	if err = context.Cause(t.ctx); err != nil {
		return err
	}

	err = wsjson.Read(t.ctx, t.conn, v)
	if err != nil {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == CloseCode {
			err = DecodeTransportError(closeErr.Reason)
		}
		t.cancel(err)
	}
	return err
}

func (t *clientTransport) WriteJSON(v any) (err error) {
	err = wsjson.Write(t.ctx, t.conn, v)
	if err != nil {
		t.cancel(err)
	}
	return err
}
