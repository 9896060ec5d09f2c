package h2

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout is how long ListenAndServe waits for open requests once its context is done.
const DefaultShutdownTimeout = 5 * time.Second

type ListenAndServeOpts struct {
	// Addr is the address to listen on.
	Addr string

	// Handler is the handler to serve.
	// If nil, uses [http.DefaultServeMux].
	Handler http.Handler

	// ShutdownTimeout bounds graceful shutdown.
	// Defaults to DefaultShutdownTimeout if zero.
	ShutdownTimeout time.Duration

	Logger *zap.Logger
}

// ListenAndServe serves the handler with h2c until ctx is done, and then shuts down gracefully.
// It returns nil after a graceful shutdown.
func ListenAndServe(ctx context.Context, opts ListenAndServeOpts) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, opts)
}

// Serve is ListenAndServe on an existing listener, which is closed on return.
func Serve(ctx context.Context, ln net.Listener, opts ListenAndServeOpts) error {
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &http.Server{
		Handler:     Handler(opts.Handler),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	stopped := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		opts.Logger.Info("shutting down", zap.Duration("timeout", opts.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		stopped <- s.Shutdown(shutdownCtx)
	})

	opts.Logger.Info("listening", zap.Stringer("addr", ln.Addr()))
	err := s.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		stop()
		return err
	}

	err = <-stopped
	if err != nil {
		opts.Logger.Warn("shutdown incomplete", zap.Error(err))
	}
	return err
}
