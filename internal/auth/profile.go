// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// UserProfile holds display data attached to a user. The pipeline only reads
// profiles, as relation-expansion material for the `with=profile` hint.
type UserProfile struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	FirstName string
	LastName  string
	Gender    string
	DOB       *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserProfile creates a profile for the given user. Every field besides
// the owner is optional; registration creates an empty profile.
func NewUserProfile(userID ulid.ULID, firstName, lastName string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		ID:        ulid.Make(),
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProfileRepository manages profile persistence.
type ProfileRepository interface {
	// Create stores a new profile.
	Create(ctx context.Context, profile *UserProfile) error

	// GetByUser retrieves the profile owned by the given user.
	GetByUser(ctx context.Context, userID ulid.ULID) (*UserProfile, error)
}
