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

// ResetRepository implements auth.ResetRepository using PostgreSQL. UNIQUE
// constraints on code and user_id enforce global code uniqueness and the
// one-outstanding-reset-per-user rule.
type ResetRepository struct {
	db DB
}

// NewResetRepository creates a new ResetRepository.
func NewResetRepository(db DB) *ResetRepository {
	return &ResetRepository{db: db}
}

// GetByUser retrieves the outstanding reset code for a user.
func (r *ResetRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*auth.UserResetCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, code, created_at
		FROM users_resets
		WHERE user_id = $1
	`, userID.String())

	var (
		idStr     string
		userIDStr string
		reset     auth.UserResetCode
	)

	err := row.Scan(&idStr, &userIDStr, &reset.Code, &reset.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_FAILED").
			With("operation", "get reset by user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	reset.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").With("id", idStr).Wrap(err)
	}
	reset.UserID, err = ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}

	return &reset, nil
}

// Insert stores a new reset code.
func (r *ResetRepository) Insert(ctx context.Context, reset *auth.UserResetCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users_resets (id, user_id, code, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		reset.ID.String(),
		reset.UserID.String(),
		reset.Code,
		reset.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("RESET_CONFLICT").
				With("user_id", reset.UserID.String()).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("RESET_INSERT_FAILED").
			With("operation", "insert reset").
			With("user_id", reset.UserID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes the user's outstanding reset code, reporting whether
// one existed.
func (r *ResetRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (bool, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM users_resets WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return false, oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete reset by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.ResetRepository = (*ResetRepository)(nil)
