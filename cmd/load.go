// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mellivora/etl-engine/internal/defload"
)

// loadCmd upserts pipeline/schedule definitions into the metadata store.
// This is the only entry point into internal/defload from the binary: a
// file loads directly, a directory loads every file matching --glob.
func loadCmd() *cobra.Command {
	var (
		debug   bool
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "load pipeline and schedule definitions from a YAML file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := buildApp(ctx, debug)
			if err != nil {
				return err
			}

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			loader := defload.New(a.store)
			if info.IsDir() {
				err = loader.LoadGlob(ctx, path, pattern)
			} else {
				err = loader.LoadFile(ctx, path)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "definitions loaded")
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&pattern, "glob", "**/*.yaml", "glob pattern matched against path when path is a directory")
	return cmd
}
