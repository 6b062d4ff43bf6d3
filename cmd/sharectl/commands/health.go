package commands

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// health: ping the relay's /health endpoint.
func healthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the relay is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, opts.cfg.RelayURL+"/health", nil)
			if err != nil {
				return err
			}
			start := time.Now()
			resp, err := opts.http.Do(req)
			if err != nil {
				return fmt.Errorf("relay unreachable: %w", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("relay unhealthy: %s %s", resp.Status, strings.TrimSpace(string(body)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", opts.cfg.RelayURL, strings.TrimSpace(string(body)), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
