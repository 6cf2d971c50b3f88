// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package main

import (
	"context"
	"os"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/viperhq/viper/internal/auth"
	authpg "github.com/viperhq/viper/internal/auth/postgres"
	"github.com/viperhq/viper/internal/store"
)

// Default timeout for games subcommands.
const defaultGamesTimeout = 30 * time.Second

// NewGamesCmd creates the games subcommand.
func NewGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Manage registered games",
		Long:  `Register new games and list existing ones. Each game gets a fresh API key and signing secret on creation.`,
	}

	cmd.AddCommand(newGamesCreateCmd())
	cmd.AddCommand(newGamesListCmd())
	cmd.AddCommand(newGamesRotateCmd())

	return cmd
}

func newGamesCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new game",
		Long: `Register a new game and print its generated API key and signing
secret. The secret is only shown once; store it securely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGamesCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "game description")

	return cmd
}

func newGamesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered games",
		RunE:  runGamesList,
	}
}

func newGamesRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <id>",
		Short: "Regenerate a game's signing secret",
		Long: `Replace a game's signing secret with a freshly generated one. Clients
signing with the old secret are rejected immediately. The new secret is only
shown once; store it securely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGamesRotate(cmd, args[0])
		},
	}
}

func openGameRepo(ctx context.Context) (*authpg.GameRepository, func(), error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return authpg.NewGameRepository(pool), pool.Close, nil
}

func runGamesCreate(cmd *cobra.Command, name, description string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultGamesTimeout)
	defer cancel()

	games, closePool, err := openGameRepo(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	game, err := auth.NewGame(name, description)
	if err != nil {
		return oops.Code("GAME_CREATE_FAILED").With("name", name).Wrap(err)
	}

	if err := games.Create(ctx, game); err != nil {
		return oops.Code("GAME_CREATE_FAILED").With("name", name).Wrap(err)
	}

	cmd.Printf("Created game: %s\n", game.Name)
	cmd.Printf("  ID:     %s\n", game.ID)
	cmd.Printf("  Key:    %s\n", game.Key)
	cmd.Printf("  Secret: %s\n", game.Secret)
	return nil
}

func runGamesRotate(cmd *cobra.Command, id string) error {
	gameID, err := ulid.Parse(id)
	if err != nil {
		return oops.Code("GAME_INVALID_ID").With("id", id).Wrap(err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultGamesTimeout)
	defer cancel()

	games, closePool, err := openGameRepo(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	secret, err := auth.GenerateGameSecret()
	if err != nil {
		return oops.Code("GAME_ROTATE_FAILED").With("id", id).Wrap(err)
	}
	if err := games.UpdateSecret(ctx, gameID, secret); err != nil {
		return oops.Code("GAME_ROTATE_FAILED").With("id", id).Wrap(err)
	}

	cmd.Printf("Rotated secret for game %s\n", gameID)
	cmd.Printf("  Secret: %s\n", secret)
	return nil
}

func runGamesList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultGamesTimeout)
	defer cancel()

	games, closePool, err := openGameRepo(ctx)
	if err != nil {
		return err
	}
	defer closePool()

	list, err := games.List(ctx)
	if err != nil {
		return oops.Code("GAME_LIST_FAILED").Wrap(err)
	}

	if len(list) == 0 {
		cmd.Println("No games registered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := w.Write([]byte("ID\tNAME\tKEY\tACTIVE\n")); err != nil {
		return oops.Wrap(err)
	}
	for _, g := range list {
		active := "yes"
		if !g.Active {
			active = "no"
		}
		if _, err := w.Write([]byte(g.ID.String() + "\t" + g.Name + "\t" + g.Key + "\t" + active + "\n")); err != nil {
			return oops.Wrap(err)
		}
	}
	return oops.Wrap(w.Flush())
}
