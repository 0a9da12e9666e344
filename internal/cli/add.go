package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/durq/pkg/task"
)

func newAddCmd() *cobra.Command {
	var (
		file    string
		kind    string
		payload string
		async   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a task",
		Long: `Enqueue a task on the server's durable queue.

The task is given either as a JSON envelope file (--file) or assembled
from --kind and --payload. The envelope form is:

  {"variant": "sync", "kind": "emit", "payload": {...}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnvelope(file, kind, payload, async)
			if err != nil {
				return err
			}

			resp, err := client.Post("/api/v1/tasks", env)
			if err != nil {
				return fmt.Errorf("add task: %w", err)
			}

			var result struct {
				Queued bool   `json:"queued"`
				Depth  uint64 `json:"depth"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Queued %s task %q (queue depth %d)\n", env.Variant, env.Kind, result.Depth)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a JSON task envelope")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "task kind (e.g. emit, script, timer, call)")
	cmd.Flags().StringVarP(&payload, "payload", "p", "{}", "task payload as JSON")
	cmd.Flags().BoolVar(&async, "async", false, "enqueue as an async task")

	return cmd
}

// buildEnvelope assembles the wire envelope from the flag set.
func buildEnvelope(file, kind, payload string, async bool) (*task.Envelope, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read task file: %w", err)
		}
		var env task.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parse task file: %w", err)
		}
		return &env, nil
	}

	if kind == "" {
		return nil, fmt.Errorf("either --file or --kind is required")
	}
	if !json.Valid([]byte(payload)) {
		return nil, fmt.Errorf("--payload is not valid JSON")
	}

	variant := task.VariantSync
	if async {
		variant = task.VariantAsync
	}
	return &task.Envelope{
		Variant: variant,
		Kind:    kind,
		Payload: json.RawMessage(payload),
	}, nil
}
