package transport

import (
	"context"
	"encoding/json"
)

// DefaultPairBuffer is the number of packets NewPair buffers in each direction.
const DefaultPairBuffer = 16

// NewPair constructs two connected Transport interfaces with DefaultPairBuffer.
func NewPair(ctx context.Context) (Transport, Transport) {
	return NewBufferPair(ctx, DefaultPairBuffer)
}

// NewBufferPair constructs two Transport interfaces that are connected to each other.
// Pass a buffer size, or zero for blocking.
// Packets are encoded as they are written, so the reader never shares memory with the writer.
func NewBufferPair(ctx context.Context, size int) (Transport, Transport) {
	ch1 := make(chan json.RawMessage, size)
	ch2 := make(chan json.RawMessage, size)

	l := &bufferTransport{ctx: ctx, readCh: ch1, writeCh: ch2}
	r := &bufferTransport{ctx: ctx, readCh: ch2, writeCh: ch1}
	return l, r
}

type bufferTransport struct {
	ctx     context.Context
	readCh  <-chan json.RawMessage
	writeCh chan<- json.RawMessage
}

func (t *bufferTransport) Context() context.Context {
	return t.ctx
}

func (t *bufferTransport) ReadJSON(v any) (err error) {
	if err = context.Cause(t.ctx); err != nil {
		return err
	}

	select {
	case <-t.ctx.Done():
		return context.Cause(t.ctx)
	case raw := <-t.readCh:
		return json.Unmarshal(raw, v)
	}
}

func (t *bufferTransport) WriteJSON(v any) (err error) {
	if err = context.Cause(t.ctx); err != nil {
		return err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case t.writeCh <- b:
		return nil
	case <-t.ctx.Done():
		return context.Cause(t.ctx)
	}
}
