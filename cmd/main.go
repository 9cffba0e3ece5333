// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mellivora/etl-engine/internal/build"
)

var cfgFile string

func main() {
	cmd := &cobra.Command{
		Use:   "etl-engine",
		Short: "ETL execution engine: DAG-scheduled, dependency-ordered data pipelines.",
		Long:  "etl-engine [server|scheduler|trigger|load|plugins|version] [args]",
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is the XDG config dir's etl-engine/config.yaml)")

	cmd.AddCommand(serverCmd())
	cmd.AddCommand(schedulerCmd())
	cmd.AddCommand(triggerCmd())
	cmd.AddCommand(loadCmd())
	cmd.AddCommand(pluginsCmd())
	cmd.AddCommand(versionCmd())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(build.Version)
			return nil
		},
	}
}
