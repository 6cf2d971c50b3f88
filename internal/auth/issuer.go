// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// maxIssueAttempts bounds the collision-retry loop. Collisions are
// vanishingly rare with a 32-character token, so hitting the bound means the
// store is misbehaving, not that we were unlucky.
const maxIssueAttempts = 5

// TokenIssuer generates collision-free tokens and reset codes and maintains
// the at-most-one-active-token-per-user invariant.
type TokenIssuer struct {
	tokens TokenRepository
	resets ResetRepository
	cfg    GeneratorConfig
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(tokens TokenRepository, resets ResetRepository, cfg GeneratorConfig) (*TokenIssuer, error) {
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	if resets == nil {
		return nil, oops.Errorf("resets repository is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenIssuer{tokens: tokens, resets: resets, cfg: cfg}, nil
}

// IssueToken generates a fresh token for the user, atomically replacing any
// existing one. The replace happens in a single store transaction, so no
// observer ever sees the user with zero or two active tokens. A collision on
// the token value regenerates and retries.
func (i *TokenIssuer) IssueToken(ctx context.Context, userID ulid.ULID) (*UserToken, error) {
	var issued *UserToken

	backoff := retry.WithMaxRetries(maxIssueAttempts, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, err := RandomString(i.cfg.TokenAlphabet, i.cfg.TokenLength)
		if err != nil {
			return err
		}
		token, err := NewUserToken(userID, value)
		if err != nil {
			return err
		}
		if err := i.tokens.Replace(ctx, token); err != nil {
			if errors.Is(err, ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		issued = token
		return nil
	})
	if err != nil {
		return nil, oops.Code("TOKEN_ISSUE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return issued, nil
}

// RevokeToken deletes the user's active token if one exists and reports
// whether one existed. A missing token is a normal outcome.
func (i *TokenIssuer) RevokeToken(ctx context.Context, userID ulid.ULID) (bool, error) {
	existed, err := i.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return false, oops.Code("TOKEN_REVOKE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return existed, nil
}

// IssueResetCode returns the user's outstanding reset code, generating one
// only if none exists. Calling it twice without a revocation in between
// returns the same code both times.
func (i *TokenIssuer) IssueResetCode(ctx context.Context, userID ulid.ULID) (*UserResetCode, error) {
	existing, err := i.resets.GetByUser(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("RESET_ISSUE_FAILED").
			With("operation", "get reset by user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	var issued *UserResetCode

	backoff := retry.WithMaxRetries(maxIssueAttempts, retry.NewConstant(time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, err := RandomString(i.cfg.ResetAlphabet, i.cfg.ResetLength)
		if err != nil {
			return err
		}
		reset, err := NewUserResetCode(userID, value)
		if err != nil {
			return err
		}
		if err := i.resets.Insert(ctx, reset); err != nil {
			if errors.Is(err, ErrConflict) {
				// Either another request created the user's reset first,
				// or the code value collided. Prefer the winner's row;
				// regenerate only for a pure code collision.
				if current, getErr := i.resets.GetByUser(ctx, userID); getErr == nil {
					issued = current
					return nil
				}
				return retry.RetryableError(err)
			}
			return err
		}
		issued = reset
		return nil
	})
	if err != nil {
		return nil, oops.Code("RESET_ISSUE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return issued, nil
}
