// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func schedulerCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "run the cron scheduler standalone, without the HTTP surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := buildApp(ctx, debug)
			if err != nil {
				return err
			}

			if err := a.sched.Start(ctx); err != nil {
				return fmt.Errorf("starting scheduler: %w", err)
			}

			listenSignals(func(_ os.Signal) {
				a.sched.Stop()
				cancel()
			})

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}
