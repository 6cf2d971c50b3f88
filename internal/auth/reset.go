// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// UserResetCode is a short opaque code enabling a password-reset flow. At
// most one outstanding code exists per user; requesting another returns the
// existing one unchanged.
type UserResetCode struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Code      string
	CreatedAt time.Time
}

// NewUserResetCode creates a validated UserResetCode.
func NewUserResetCode(userID ulid.ULID, code string) (*UserResetCode, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if code == "" {
		return nil, oops.Code("RESET_INVALID_CODE").Errorf("code cannot be empty")
	}
	return &UserResetCode{
		ID:        ulid.Make(),
		UserID:    userID,
		Code:      code,
		CreatedAt: time.Now(),
	}, nil
}

// ResetRepository manages reset code persistence. Codes are globally unique,
// enforced by the store's uniqueness constraint; so is the one-outstanding-
// reset-per-user rule.
type ResetRepository interface {
	// GetByUser retrieves the outstanding reset code for a user.
	GetByUser(ctx context.Context, userID ulid.ULID) (*UserResetCode, error)

	// Insert stores a new reset code. Returns ErrConflict if the code
	// value collides or the user already has an outstanding reset.
	Insert(ctx context.Context, reset *UserResetCode) error

	// DeleteByUser removes the user's outstanding reset code, reporting
	// whether one existed.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (bool, error)
}
