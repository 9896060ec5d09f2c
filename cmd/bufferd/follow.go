package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samthor/listbuf/feed"
	"github.com/samthor/listbuf/logger"
	"github.com/samthor/listbuf/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var followPrint bool

var followCmd = &cobra.Command{
	Use:   "follow URL",
	Short: "Mirror a remote feed and log every change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(&logger.Config{Level: "info", Format: "console"})
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := feed.Dial[entry](ctx, args[0], transport.DialOpts{})
		if err != nil {
			return err
		}

		var m feed.Mirror[entry]
		err = s.Follow(&m, func(c feed.Change[entry]) {
			log.Info("change",
				zap.String("kind", string(c.Kind)),
				zap.Int("seq", c.Seq),
				zap.Int("len", c.Len),
				zap.Int("inserts", len(c.Inserts)),
				zap.Int("deletes", len(c.Deletes)),
				zap.Int("moves", len(c.Moves)),
			)
			if followPrint {
				for _, e := range m.Items() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", e.Key, e.Value)
				}
			}
		})
		if ctx.Err() != nil {
			return nil
		}

		var te transport.TransportError
		if errors.As(err, &te) && te.Code == feed.CodeDropped {
			return fmt.Errorf("dropped by server, reconnect for a new snapshot: %w", err)
		}
		return err
	},
}

func init() {
	followCmd.Flags().BoolVar(&followPrint, "print", false, "print the mirrored list after every change")
	rootCmd.AddCommand(followCmd)
}
