package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drain the queue once",
		Long: `Trigger a single drain pass on the server.

Sync tasks execute to completion during the pass. Async tasks are
dispatched to the server's runtime and push their continuations when
they resolve, so a later drain may find more work.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/run", nil)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			var result struct {
				Drained bool   `json:"drained"`
				Depth   uint64 `json:"depth"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Drain pass complete (queue depth %d)\n", result.Depth)
			return nil
		},
	}
}
