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

// UserToken is an opaque bearer token identifying a user session. A user has
// at most one active token; issuing a new one invalidates the old one
// atomically.
type UserToken struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Token     string
	CreatedAt time.Time
}

// NewUserToken creates a validated UserToken.
func NewUserToken(userID ulid.ULID, token string) (*UserToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if token == "" {
		return nil, oops.Code("TOKEN_INVALID_VALUE").Errorf("token cannot be empty")
	}
	return &UserToken{
		ID:        ulid.Make(),
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now(),
	}, nil
}

// TokenRepository manages bearer token persistence. Token values are
// globally unique across all users, active and historical, enforced by the
// store's uniqueness constraint.
type TokenRepository interface {
	// GetByToken retrieves the active token row and its owning user by
	// exact token match.
	GetByToken(ctx context.Context, token string) (*UserToken, *User, error)

	// Replace atomically deletes any existing token for the user and
	// inserts the new one in a single transaction. Returns ErrConflict if
	// the token value collides with an existing row.
	Replace(ctx context.Context, token *UserToken) error

	// DeleteByUser removes the user's active token, reporting whether one
	// existed. Absence is a normal outcome, not an error.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (bool, error)
}

// TokenAuthenticator resolves and validates the calling user from a bearer
// token.
type TokenAuthenticator struct {
	tokens TokenRepository
}

// NewTokenAuthenticator creates a TokenAuthenticator.
func NewTokenAuthenticator(tokens TokenRepository) (*TokenAuthenticator, error) {
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	return &TokenAuthenticator{tokens: tokens}, nil
}

// Authenticate looks up the user owning the given token. It returns a
// wrapped ErrNotFound when no row matches. Read-only; does not touch reset
// or profile data.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (*User, error) {
	_, user, err := a.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(err)
		}
		return nil, oops.Code("AUTH_TOKEN_LOOKUP_FAILED").
			With("operation", "get token by value").
			Wrap(err)
	}
	return user, nil
}
