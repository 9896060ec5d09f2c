package main

import (
	"fmt"
	"os"

	"github.com/samthor/listbuf/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bufferd",
	Short: "Serve a list as a feed of changes",
	Long: `bufferd watches a list file and publishes every edit as a minimal set of
inserts, deletes and moves, over WebSocket and Server-Sent Events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing an optional .env file")
}
