package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/health")
			if err != nil {
				return fmt.Errorf("get status: %w", err)
			}

			var health struct {
				Status    string `json:"status"`
				Version   string `json:"version"`
				GoVersion string `json:"go_version"`
				Uptime    string `json:"uptime"`
				Region    string `json:"region"`
				Depth     uint64 `json:"depth"`
			}
			if err := json.Unmarshal(resp.Data, &health); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Server:  %s\n", flagServer)
			fmt.Printf("Status:  %s\n", health.Status)
			fmt.Printf("Version: %s (%s)\n", health.Version, health.GoVersion)
			fmt.Printf("Uptime:  %s\n", health.Uptime)
			fmt.Printf("Region:  %s (%d pending)\n", health.Region, health.Depth)
			return nil
		},
	}
}
