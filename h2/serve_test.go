package h2

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ctx, ln, ListenAndServeOpts{
			Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, r.Proto)
			}),
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(b) != "HTTP/1.1" {
		t.Errorf("expected HTTP/1.1, was: %q", b)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected clean shutdown, got: %v", err)
		}
	case <-time.After(time.Second * 2):
		t.Fatal("server did not stop")
	}
}

func TestServeAcceptError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	ln.Close()

	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := context.WithCancel(t.Context())
	err = Serve(ctx, ln, ListenAndServeOpts{Logger: zap.New(core)})
	if err == nil {
		t.Fatal("expected accept error")
	}

	// the shutdown hook must not outlive Serve
	cancel()
	time.Sleep(time.Millisecond * 20)
	if n := logs.FilterMessage("shutting down").Len(); n != 0 {
		t.Errorf("shutdown ran after Serve returned, %d times", n)
	}
}
