// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/mellivora/etl-engine/internal/config"
	"github.com/mellivora/etl-engine/internal/cronsched"
	"github.com/mellivora/etl-engine/internal/dagexec"
	"github.com/mellivora/etl-engine/internal/logger"
	"github.com/mellivora/etl-engine/internal/plugin"
	"github.com/mellivora/etl-engine/internal/plugin/builtin"
	"github.com/mellivora/etl-engine/internal/state"
	"github.com/mellivora/etl-engine/internal/store"
)

// app bundles the components every subcommand needs, built once from
// the resolved configuration.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	store    store.Store
	registry *plugin.Registry
	state    *state.Manager
	dagexec  *dagexec.Executor
	sched    *cronsched.Scheduler
}

func buildApp(ctx context.Context, debug bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if debug {
		cfg.Debug = true
	}

	var logOpts []logger.Option
	if cfg.Debug {
		logOpts = append(logOpts, logger.WithDebug())
	}
	logOpts = append(logOpts, logger.WithFormat(cfg.LogFormat))
	log := logger.NewLogger(logOpts...)

	st, err := store.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to metadata store: %w", err)
	}

	registry := plugin.New()
	builtin.Register(registry)

	stateMgr := state.New(st)
	exec := dagexec.NewExecutor(stateMgr, st, registry, log)
	sched := cronsched.New(st, exec, log, cronsched.Config{
		Enabled:      cfg.SchedulerEnabled,
		PollInterval: cfg.SchedulerPollInterval,
	})

	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		registry: registry,
		state:    stateMgr,
		dagexec:  exec,
		sched:    sched,
	}, nil
}
