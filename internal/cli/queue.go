package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/durq/pkg/task"
)

func newQueueCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List pending tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/queue")
			if err != nil {
				return fmt.Errorf("list queue: %w", err)
			}

			var result struct {
				Live  []task.Envelope `json:"live"`
				Depth int             `json:"depth"`
				Total uint64          `json:"total"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if asJSON {
				out, err := json.MarshalIndent(result.Live, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("Queue: %d pending, %d enqueued lifetime\n", result.Depth, result.Total)
			for i, env := range result.Live {
				fmt.Printf("  %3d  %-5s  %s\n", i, env.Variant, env.Kind)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw task envelopes as JSON")

	return cmd
}
