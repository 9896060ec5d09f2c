package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samthor/listbuf/buffer"
	"github.com/samthor/listbuf/config"
	"github.com/samthor/listbuf/diff"
	"github.com/samthor/listbuf/feed"
	"github.com/samthor/listbuf/h2"
	"github.com/samthor/listbuf/logger"
	"github.com/samthor/listbuf/owner"
	"github.com/samthor/listbuf/transport"
	"github.com/samthor/listbuf/wrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxDiffBody limits the request body of the /diff endpoint.
const maxDiffBody = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the list file as a feed",
	Long: `Reads the configured list file, serves it as a feed and republishes it
whenever the file changes.

Endpoints:
  <feed.path>        WebSocket feed (hello handshake, then a snapshot and changes)
  <feed.path>/sse    Server-Sent Events feed
  /state             the published list as JSON
  /diff              POST {"prev": [lines], "next": [lines]}, returns the diff`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}

		log, err := logger.New(&cfg.Log)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	cfg  *config.Config
	log  *zap.Logger
	loop *owner.Loop
	b    *buffer.Buffer[entry]
	f    *feed.Feed[entry]
}

func newServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*server, error) {
	initial, err := readList(cfg.Buffer.File, cfg.Buffer.Unique)
	if err != nil {
		return nil, err
	}

	s := &server{cfg: cfg, log: log, loop: owner.New(ctx)}

	opts := buffer.Options[entry]{
		DiffThreshold: cfg.Buffer.DiffThreshold,
		Equal:         entryEqual,
		Owner:         s.loop,
		Logger:        log.Named("buffer"),
	}
	if cfg.Buffer.Sort {
		opts.Sort = entryLess
	}
	s.b = buffer.New(ctx, initial, opts)

	s.loop.Do(func() {
		// the initial elements are published as-is, so sort them before anyone subscribes
		s.b.Refresh(true, nil)
		s.f = feed.New(s.b, feed.Options[entry]{
			Equal:    entryEqual,
			Backlog:  cfg.Feed.Backlog,
			SendRate: cfg.Feed.SendRate,
			Logger:   log.Named("feed"),
		})
	})
	if s.f == nil {
		return nil, context.Cause(ctx)
	}

	log.Info("loaded list", zap.String("file", cfg.Buffer.File), zap.Int("len", len(initial)), zap.Int("epoch", s.f.Epoch()))
	return s, nil
}

func (s *server) handler() http.Handler {
	fc := s.cfg.Feed

	mux := http.NewServeMux()
	mux.Handle(fc.Path, s.f.Handler(transport.SocketOpts{
		MaxPacketSize: fc.MaxPacketSize,
		RateLimit:     fc.RateLimit,
		RateBurst:     fc.RateBurst,
		PingEvery:     fc.PingEvery,
	}))
	mux.HandleFunc(fc.Path+"/sse", s.f.ServeSSE)
	mux.Handle("GET /state", wrap.Http(s.log, s.state))
	mux.Handle("POST /diff", wrap.Http(s.log, diffHandler))
	return mux
}

// reload reads the list file and submits it to the buffer.
func (s *server) reload() {
	entries, err := readList(s.cfg.Buffer.File, s.cfg.Buffer.Unique)
	if err != nil {
		s.log.Warn("could not read list", zap.Error(err))
		return
	}

	s.loop.Post(func() {
		s.b.Update(entries, false, func() {
			s.log.Debug("published", zap.Int("len", s.b.Len()))
		})
	})
}

func (s *server) state(w http.ResponseWriter, r *http.Request) any {
	var items []entry
	if !s.loop.Do(func() { items = s.b.Elements() }) {
		return wrap.StatusError{Code: http.StatusServiceUnavailable, Message: "shutting down"}
	}
	if items == nil {
		items = []entry{}
	}
	return map[string]any{"epoch": s.f.Epoch(), "items": items}
}

type diffRequest struct {
	Prev []string `json:"prev"`
	Next []string `json:"next"`
}

func diffHandler(w http.ResponseWriter, r *http.Request) any {
	var req diffRequest
	if err := wrap.DecodeJSON(r, maxDiffBody, &req); err != nil {
		return err
	}
	return diff.Diff(parseLines(req.Prev), parseLines(req.Next), entryEqual)
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	s, err := newServer(ctx, cfg, log)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h2.ListenAndServe(gctx, h2.ListenAndServeOpts{
			Addr:    cfg.Feed.Addr,
			Handler: s.handler(),
			Logger:  log,
		})
	})
	g.Go(func() error {
		return watchFile(gctx, cfg.Buffer.File, log, s.reload)
	})
	return g.Wait()
}
