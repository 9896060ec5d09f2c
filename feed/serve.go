package feed

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/samthor/listbuf/transport"
	"go.uber.org/zap"
)

// Handler returns an http.Handler serving this Feed over WebSocket, see Serve.
func (f *Feed[T]) Handler(opts transport.SocketOpts) http.Handler {
	return transport.NewWebSocketHandler(opts, f.Serve)
}

// Serve writes a snapshot and then every change to tr until its context is done.
// A subscriber that falls behind is closed with a transport.TransportError with CodeDropped.
func (f *Feed[T]) Serve(tr transport.Transport) error {
	ctx := tr.Context()
	cur := f.Join(ctx)
	limiter := f.limiter()

	for {
		c, ok := cur.Next()
		if !ok {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil // closed while waiting
		}
		if err := tr.WriteJSON(c); err != nil {
			return err
		}
	}

	if errors.Is(cur.Err(), ErrDropped) {
		f.log.Warn("closing subscriber", zap.Error(cur.Err()))
		return transport.TransportError{Code: CodeDropped, Reason: cur.Err().Error()}
	}
	return nil
}

// ServeSSE streams this Feed as Server-Sent Events.
// Every change is sent as a "change" event with its Seq as the event ID and the Change as JSON data.
// A subscriber that falls behind is disconnected, and is expected to reconnect for a new snapshot.
func (f *Feed[T]) ServeSSE(w http.ResponseWriter, r *http.Request) {
	setSSEHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	cur := f.Join(ctx)
	limiter := f.limiter()

	for {
		c, ok := cur.Next()
		if !ok {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := writeEvent(w, "change", strconv.Itoa(c.Seq), c); err != nil {
			f.log.Debug("sse write failed", zap.Error(err))
			return
		}
	}

	if errors.Is(cur.Err(), ErrDropped) {
		f.log.Warn("closing sse subscriber", zap.Error(cur.Err()))
	}
}
