// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/viperhq/viper/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL. The
// users_tokens table carries UNIQUE constraints on both token and user_id,
// backing global token uniqueness and the one-active-token-per-user
// invariant against concurrent service instances.
type TokenRepository struct {
	db DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// GetByToken retrieves the active token row and its owning user.
func (r *TokenRepository) GetByToken(ctx context.Context, token string) (*auth.UserToken, *auth.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT t.id, t.user_id, t.token, t.created_at,
		       u.id, u.username, u.email, u.password_hash, u.active, u.created_at, u.updated_at
		FROM users_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1
	`, token)

	var (
		tokenIDStr string
		userIDStr  string
		ut         auth.UserToken
		uIDStr     string
		user       auth.User
	)

	err := row.Scan(
		&tokenIDStr, &userIDStr, &ut.Token, &ut.CreatedAt,
		&uIDStr, &user.Username, &user.Email, &user.PasswordHash, &user.Active, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get token by value").
			Wrap(err)
	}

	ut.ID, err = ulid.Parse(tokenIDStr)
	if err != nil {
		return nil, nil, oops.Code("TOKEN_INVALID_ID").With("id", tokenIDStr).Wrap(err)
	}
	ut.UserID, err = ulid.Parse(userIDStr)
	if err != nil {
		return nil, nil, oops.Code("TOKEN_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	user.ID, err = ulid.Parse(uIDStr)
	if err != nil {
		return nil, nil, oops.Code("USER_INVALID_ID").With("id", uIDStr).Wrap(err)
	}

	return &ut, &user, nil
}

// Replace atomically deletes any existing token for the user and inserts the
// new one. Both statements run in one transaction: a crash or a concurrent
// request can never observe the user with zero or two active tokens.
func (r *TokenRepository) Replace(ctx context.Context, token *auth.UserToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("TOKEN_REPLACE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		// No-op if the transaction committed.
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op
	}()

	if _, err := tx.Exec(ctx, `
		DELETE FROM users_tokens WHERE user_id = $1
	`, token.UserID.String()); err != nil {
		return oops.Code("TOKEN_REPLACE_FAILED").
			With("operation", "delete existing token").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO users_tokens (id, user_id, token, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		token.ID.String(),
		token.UserID.String(),
		token.Token,
		token.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return oops.Code("TOKEN_VALUE_TAKEN").Wrap(auth.ErrConflict)
		}
		return oops.Code("TOKEN_REPLACE_FAILED").
			With("operation", "insert token").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TOKEN_REPLACE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes the user's active token, reporting whether one
// existed.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (bool, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM users_tokens WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return false, oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "delete token by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
