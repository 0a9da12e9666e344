// Package cli implements the durq command line client: a thin
// remote-procedure layer over the daemon's HTTP API.
package cli

import (
	"log/slog"
	"os"

	"github.com/me/durq/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking DURQ_SERVER
// first.
func defaultServer() string {
	if s := os.Getenv("DURQ_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the durq CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "durq",
		Short: "durq is a durable continuation task scheduler",
		Long:  "durq enqueues, drains, and inspects tasks on a durq daemon.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "durq server URL (or DURQ_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newAddCmd(),
		newRunCmd(),
		newQueueCmd(),
		newStatusCmd(),
	)

	return root
}
