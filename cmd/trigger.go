// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mellivora/etl-engine/internal/core"
)

func triggerCmd() *cobra.Command {
	var (
		debug      bool
		paramsJSON string
	)

	cmd := &cobra.Command{
		Use:   "trigger [schedule|pipeline] <id>",
		Short: "manually trigger a schedule or a standalone pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx, debug)
			if err != nil {
				return err
			}

			params := map[string]any{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params JSON: %w", err)
				}
			}

			kind, id := args[0], args[1]

			switch kind {
			case "schedule":
				execution, err := a.sched.TriggerManual(ctx, id, params)
				if err != nil {
					return err
				}
				fmt.Println(execution.ID)
			case "pipeline":
				execution, err := a.dagexec.ExecutePipeline(ctx, id, core.TriggerManual, params)
				if err != nil {
					return err
				}
				fmt.Println(execution.ID)
			default:
				return fmt.Errorf("unknown trigger kind %q, want schedule or pipeline", kind)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "JSON object of params to pass")
	return cmd
}
