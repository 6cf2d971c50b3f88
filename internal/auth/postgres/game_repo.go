// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/viperhq/viper/internal/auth"
)

// GameRepository implements auth.GameRepository using PostgreSQL.
type GameRepository struct {
	db DB
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(db DB) *GameRepository {
	return &GameRepository{db: db}
}

// Create stores a new game.
func (r *GameRepository) Create(ctx context.Context, game *auth.Game) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO games (id, name, description, key, secret, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		game.ID.String(),
		game.Name,
		game.Description,
		game.Key,
		game.Secret,
		game.Active,
		game.CreatedAt,
		game.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("GAME_KEY_TAKEN").
				With("key", game.Key).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("GAME_CREATE_FAILED").
			With("operation", "insert game").
			Wrap(err)
	}
	return nil
}

// GetByKey retrieves a game by its API key.
func (r *GameRepository) GetByKey(ctx context.Context, key string) (*auth.Game, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, description, key, secret, active, created_at, updated_at
		FROM games
		WHERE key = $1
	`, key)

	game, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("GAME_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("GAME_GET_BY_KEY_FAILED").
			With("operation", "get game by key").
			Wrap(err)
	}
	return game, nil
}

// List returns all registered games ordered by creation time.
func (r *GameRepository) List(ctx context.Context) ([]*auth.Game, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, key, secret, active, created_at, updated_at
		FROM games
		ORDER BY created_at
	`)
	if err != nil {
		return nil, oops.Code("GAME_LIST_FAILED").
			With("operation", "list games").
			Wrap(err)
	}
	defer rows.Close()

	var games []*auth.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, oops.Code("GAME_SCAN_FAILED").
				With("operation", "scan game row").
				Wrap(err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("GAME_ROWS_ERROR").
			With("operation", "iterate game rows").
			Wrap(err)
	}

	return games, nil
}

// UpdateSecret replaces a game's secret.
func (r *GameRepository) UpdateSecret(ctx context.Context, id ulid.ULID, secret string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE games SET secret = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), secret, time.Now())
	if err != nil {
		return oops.Code("GAME_UPDATE_SECRET_FAILED").
			With("operation", "update game secret").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("GAME_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanGame scans a single row into a Game.
// Callers are responsible for handling pgx.ErrNoRows.
func scanGame(row pgx.Row) (*auth.Game, error) {
	var (
		idStr     string
		game      auth.Game
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&idStr, &game.Name, &game.Description, &game.Key, &game.Secret, &game.Active, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("GAME_SCAN_FAILED").
			With("operation", "scan game").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("GAME_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	game.ID = id
	game.CreatedAt = createdAt
	game.UpdatedAt = updatedAt
	return &game, nil
}

// Compile-time interface check.
var _ auth.GameRepository = (*GameRepository)(nil)
