// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/viperhq/viper/internal/auth"
	authpg "github.com/viperhq/viper/internal/auth/postgres"
	"github.com/viperhq/viper/internal/store"
)

// Default timeout for the seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// Fixed ULIDs so re-running the seed hits unique constraints instead of
// creating duplicates.
var (
	seedGameActiveID   = ulid.MustParse("01J00000000000000000000001")
	seedGameInactiveID = ulid.MustParse("01J00000000000000000000002")
	seedUser1ID        = ulid.MustParse("01J00000000000000000000003")
	seedUser2ID        = ulid.MustParse("01J00000000000000000000004")
)

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with test fixtures",
		Long: `Creates the test games and users used by the integration suite.
This command is idempotent - it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	// Use cmd.Context() so SIGINT/SIGTERM interrupt the seed.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	games := authpg.NewGameRepository(pool)
	users := authpg.NewUserRepository(pool)
	profiles := authpg.NewProfileRepository(pool)

	now := time.Now().UTC()

	fixtures := []*auth.Game{
		{
			ID:          seedGameActiveID,
			Name:        "Test Game",
			Description: "This is a test game for the purpose of testing the API.",
			Key:         "917e3d32272adedc65985dcb45d37168",
			Secret:      "6a1b5d00488f07bf333df2f7700e8222d05e98cc2ba84cc31f9c1977cfdfd77f",
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          seedGameInactiveID,
			Name:        "Inactive Game",
			Description: "This is an inactive game to help with tests",
			Key:         "6f8d35b5f4f2fe2d189ae56721fb58e8",
			Secret:      "c0c8bc15912cd0abeaeef744f5881297c2854fcf6d806208bc5d331081f17208",
			Active:      false,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	for _, game := range fixtures {
		if err := games.Create(ctx, game); err != nil {
			if errors.Is(err, auth.ErrConflict) {
				cmd.Printf("Game %q already exists, skipping\n", game.Name)
				continue
			}
			return oops.Code("SEED_FAILED").With("operation", "create game").With("game", game.Name).Wrap(err)
		}
		cmd.Printf("Created game: %s\n", game.Name)
		slog.Info("created seed game", "id", game.ID, "name", game.Name)
	}

	hasher := auth.NewBcryptHasher()
	passwordHash, err := hasher.Hash("password")
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "hash seed password").Wrap(err)
	}

	dob := now.Truncate(24 * time.Hour)

	seedUsers := []struct {
		user    auth.User
		profile auth.UserProfile
	}{
		{
			user: auth.User{
				ID:           seedUser1ID,
				Username:     "testuser1",
				Email:        "test@imarealuser.com",
				PasswordHash: passwordHash,
				Active:       true,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			profile: auth.UserProfile{
				ID:        ulid.Make(),
				UserID:    seedUser1ID,
				FirstName: "Test",
				LastName:  "User1",
				Gender:    "m",
				DOB:       &dob,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		{
			user: auth.User{
				ID:           seedUser2ID,
				Username:     "testuser2",
				Email:        "test@imnotarealuser.com",
				PasswordHash: passwordHash,
				Active:       false,
				CreatedAt:    now,
				UpdatedAt:    now,
			},
			profile: auth.UserProfile{
				ID:        ulid.Make(),
				UserID:    seedUser2ID,
				FirstName: "Test",
				LastName:  "User2",
				Gender:    "m",
				DOB:       &dob,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
	}

	for _, fixture := range seedUsers {
		user := fixture.user
		if err := users.Create(ctx, &user); err != nil {
			if errors.Is(err, auth.ErrConflict) {
				cmd.Printf("User %q already exists, skipping\n", user.Username)
				continue
			}
			return oops.Code("SEED_FAILED").With("operation", "create user").With("username", user.Username).Wrap(err)
		}
		profile := fixture.profile
		if err := profiles.Create(ctx, &profile); err != nil && !errors.Is(err, auth.ErrConflict) {
			return oops.Code("SEED_FAILED").With("operation", "create profile").With("username", user.Username).Wrap(err)
		}
		cmd.Printf("Created user: %s\n", user.Username)
		slog.Info("created seed user", "id", user.ID, "username", user.Username)
	}

	cmd.Println("Seeding complete!")
	return nil
}
