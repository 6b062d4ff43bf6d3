package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/negroni/relay/internal/config"
	"github.com/negroni/relay/internal/logger"
)

type rootOptions struct {
	relayURL string
	cfg      *config.ClientConfig
	http     *http.Client
}

// Execute runs sharectl with the process arguments.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "sharectl",
		Short:         "Relay a photo and share it to Telegram from the terminal",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.LoadClient()
			if opts.relayURL != "" {
				opts.cfg.RelayURL = opts.relayURL
				if os.Getenv("PREPARE_URL") == "" {
					opts.cfg.PrepareURL = opts.relayURL + "/prepare"
				}
			}
			logger.L = logger.New(cmd.ErrOrStderr(), opts.cfg.LogLevel, opts.cfg.LogFormat)
			opts.http = &http.Client{}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.relayURL, "relay", "", "relay base URL (default $RELAY_URL)")

	root.AddCommand(sendCmd(opts), healthCmd(opts))
	return root
}
