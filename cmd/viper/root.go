// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Viper CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viper",
		Short: "Viper - a signed multi-tenant API backend",
		Long: `Viper is an API backend for games. Registered games authenticate
requests with an API key, sign write payloads with a shared secret,
and act on behalf of users holding bearer tokens.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewGamesCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
