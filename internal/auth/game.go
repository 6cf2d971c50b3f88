// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Game credential sizes. Keys are public identifiers; secrets never leave
// the server.
const (
	GameKeyLength    = 32
	GameSecretLength = 64 // hex chars, 32 random bytes
)

// Game is a registered API client. Each game authenticates requests with its
// key and signs write-style payloads with its secret.
type Game struct {
	ID          ulid.ULID
	Name        string
	Description string
	Key         string
	Secret      string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewGame creates a validated Game with freshly generated credentials.
func NewGame(name, description string) (*Game, error) {
	if name == "" {
		return nil, oops.Code("GAME_INVALID_NAME").Errorf("game name cannot be empty")
	}

	key, err := GenerateGameKey()
	if err != nil {
		return nil, err
	}
	secret, err := GenerateGameSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Game{
		ID:          ulid.Make(),
		Name:        name,
		Description: description,
		Key:         key,
		Secret:      secret,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GameRepository manages game credential persistence.
type GameRepository interface {
	// Create stores a new game. Returns ErrConflict if the key is taken.
	Create(ctx context.Context, game *Game) error

	// GetByKey retrieves a game by its API key.
	GetByKey(ctx context.Context, key string) (*Game, error)

	// List returns all registered games.
	List(ctx context.Context) ([]*Game, error)

	// UpdateSecret replaces a game's secret. Secrets are write-once except
	// through this explicit regeneration path.
	UpdateSecret(ctx context.Context, id ulid.ULID, secret string) error
}

// GameAuthenticator resolves and validates the calling game from a request
// key.
type GameAuthenticator struct {
	games GameRepository
}

// NewGameAuthenticator creates a GameAuthenticator.
func NewGameAuthenticator(games GameRepository) (*GameAuthenticator, error) {
	if games == nil {
		return nil, oops.Errorf("games repository is required")
	}
	return &GameAuthenticator{games: games}, nil
}

// Authenticate looks up the game for the given API key. It returns a
// wrapped ErrNotFound for unknown keys and ErrInactiveGame for games that
// have been deactivated. Read-only.
func (a *GameAuthenticator) Authenticate(ctx context.Context, key string) (*Game, error) {
	game, err := a.games.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_UNKNOWN_GAME").Wrap(err)
		}
		return nil, oops.Code("AUTH_GAME_LOOKUP_FAILED").
			With("operation", "get game by key").
			Wrap(err)
	}

	if !game.Active {
		return nil, oops.Code("AUTH_INACTIVE_GAME").
			With("game_id", game.ID.String()).
			Wrap(ErrInactiveGame)
	}

	return game, nil
}
