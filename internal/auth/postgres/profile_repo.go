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

// ProfileRepository implements auth.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create stores a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *auth.UserProfile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users_profiles (id, user_id, first_name, last_name, gender, dob, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		profile.ID.String(),
		profile.UserID.String(),
		profile.FirstName,
		profile.LastName,
		profile.Gender,
		profile.DOB,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("PROFILE_EXISTS").
				With("user_id", profile.UserID.String()).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "insert profile").
			Wrap(err)
	}
	return nil
}

// GetByUser retrieves the profile owned by the given user.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID ulid.ULID) (*auth.UserProfile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, first_name, last_name, gender, dob, created_at, updated_at
		FROM users_profiles
		WHERE user_id = $1
	`, userID.String())

	var (
		idStr     string
		userIDStr string
		profile   auth.UserProfile
		dob       *time.Time
	)

	err := row.Scan(&idStr, &userIDStr, &profile.FirstName, &profile.LastName, &profile.Gender, &dob, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get profile by user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	profile.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PROFILE_INVALID_ID").With("id", idStr).Wrap(err)
	}
	profile.UserID, err = ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("PROFILE_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}
	profile.DOB = dob

	return &profile, nil
}

// Compile-time interface check.
var _ auth.ProfileRepository = (*ProfileRepository)(nil)
