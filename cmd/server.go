// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mellivora/etl-engine/internal/httpapi"
	"github.com/mellivora/etl-engine/internal/management"
)

func serverCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "run the management HTTP surface and the cron scheduler",
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

			svc := management.New(a.registry, a.sched, a.dagexec)
			router := httpapi.NewRouter(svc)

			addr := fmt.Sprintf(":%d", a.cfg.ServicePort)
			srv := &http.Server{Addr: addr, Handler: router}

			listenSignals(func(_ os.Signal) {
				a.sched.Stop()
				_ = srv.Close()
			})

			a.log.Info("server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func listenSignals(abort func(sig os.Signal)) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		abort(sig)
	}()
}
