// Copyright (C) 2024 Yota Hamada
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mellivora/etl-engine/internal/plugin"
	"github.com/mellivora/etl-engine/internal/plugin/builtin"
)

func pluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "list the registered extract/transform/load plugins",
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := plugin.New()
			builtin.Register(registry)

			byKind := registry.List()
			kinds := make([]string, 0, len(byKind))
			for kind := range byKind {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)

			for _, kind := range kinds {
				names := byKind[kind]
				sort.Strings(names)
				fmt.Printf("%s:\n", kind)
				for _, name := range names {
					fmt.Printf("  %s\n", name)
				}
			}
			return nil
		},
	}
}
