// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

// Package authtest provides in-memory repository fakes for auth tests.
package authtest

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/viperhq/viper/internal/auth"
)

// GameRepo is an in-memory GameRepository.
type GameRepo struct {
	mu    sync.Mutex
	games map[string]*auth.Game // keyed by API key

	// FailAll makes every call return an opaque error, for simulating a
	// store outage.
	FailAll bool
}

// NewGameRepo creates an empty GameRepo.
func NewGameRepo() *GameRepo {
	return &GameRepo{games: make(map[string]*auth.Game)}
}

func (r *GameRepo) Create(_ context.Context, game *auth.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return oops.Errorf("store unavailable")
	}
	if _, ok := r.games[game.Key]; ok {
		return oops.Code("GAME_KEY_TAKEN").Wrap(auth.ErrConflict)
	}
	g := *game
	r.games[game.Key] = &g
	return nil
}

func (r *GameRepo) GetByKey(_ context.Context, key string) (*auth.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, oops.Errorf("store unavailable")
	}
	g, ok := r.games[key]
	if !ok {
		return nil, oops.Code("GAME_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (r *GameRepo) List(_ context.Context) ([]*auth.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, oops.Errorf("store unavailable")
	}
	out := make([]*auth.Game, 0, len(r.games))
	for _, g := range r.games {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

func (r *GameRepo) UpdateSecret(_ context.Context, id ulid.ULID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return oops.Errorf("store unavailable")
	}
	for _, g := range r.games {
		if g.ID == id {
			g.Secret = secret
			return nil
		}
	}
	return oops.Code("GAME_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// UserRepo is an in-memory UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User

	FailAll bool
}

// NewUserRepo creates an empty UserRepo.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[ulid.ULID]*auth.User)}
}

func (r *UserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return oops.Errorf("store unavailable")
	}
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return oops.Code("USER_TAKEN").Wrap(auth.ErrConflict)
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, oops.Errorf("store unavailable")
	}
	u, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, oops.Errorf("store unavailable")
	}
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// TokenRepo is an in-memory TokenRepository. It needs a UserRepo to resolve
// token owners the way the SQL join does.
type TokenRepo struct {
	mu     sync.Mutex
	tokens map[ulid.ULID]*auth.UserToken // keyed by user ID
	users  *UserRepo

	FailAll bool

	// ConflictNext forces the next N Replace or Insert-style calls to
	// return ErrConflict, for exercising collision retry paths.
	ConflictNext int
}

// NewTokenRepo creates an empty TokenRepo resolving users from users.
func NewTokenRepo(users *UserRepo) *TokenRepo {
	return &TokenRepo{tokens: make(map[ulid.ULID]*auth.UserToken), users: users}
}

func (r *TokenRepo) GetByToken(ctx context.Context, token string) (*auth.UserToken, *auth.User, error) {
	r.mu.Lock()
	if r.FailAll {
		r.mu.Unlock()
		return nil, nil, oops.Errorf("store unavailable")
	}
	var found *auth.UserToken
	for _, t := range r.tokens {
		if t.Token == token {
			cp := *t
			found = &cp
			break
		}
	}
	r.mu.Unlock()

	if found == nil {
		return nil, nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	user, err := r.users.GetByID(ctx, found.UserID)
	if err != nil {
		return nil, nil, err
	}
	return found, user, nil
}

func (r *TokenRepo) Replace(_ context.Context, token *auth.UserToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return oops.Errorf("store unavailable")
	}
	if r.ConflictNext > 0 {
		r.ConflictNext--
		return oops.Code("TOKEN_VALUE_TAKEN").Wrap(auth.ErrConflict)
	}
	for userID, t := range r.tokens {
		if userID != token.UserID && t.Token == token.Token {
			return oops.Code("TOKEN_VALUE_TAKEN").Wrap(auth.ErrConflict)
		}
	}
	cp := *token
	r.tokens[token.UserID] = &cp
	return nil
}

func (r *TokenRepo) DeleteByUser(_ context.Context, userID ulid.ULID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return false, oops.Errorf("store unavailable")
	}
	_, ok := r.tokens[userID]
	delete(r.tokens, userID)
	return ok, nil
}

// ResetRepo is an in-memory ResetRepository.
type ResetRepo struct {
	mu     sync.Mutex
	resets map[ulid.ULID]*auth.UserResetCode // keyed by user ID

	FailAll      bool
	ConflictNext int
}

// NewResetRepo creates an empty ResetRepo.
func NewResetRepo() *ResetRepo {
	return &ResetRepo{resets: make(map[ulid.ULID]*auth.UserResetCode)}
}

func (r *ResetRepo) GetByUser(_ context.Context, userID ulid.ULID) (*auth.UserResetCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, oops.Errorf("store unavailable")
	}
	reset, ok := r.resets[userID]
	if !ok {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *reset
	return &cp, nil
}

func (r *ResetRepo) Insert(_ context.Context, reset *auth.UserResetCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return oops.Errorf("store unavailable")
	}
	if r.ConflictNext > 0 {
		r.ConflictNext--
		return oops.Code("RESET_CONFLICT").Wrap(auth.ErrConflict)
	}
	if _, ok := r.resets[reset.UserID]; ok {
		return oops.Code("RESET_CONFLICT").Wrap(auth.ErrConflict)
	}
	for _, existing := range r.resets {
		if existing.Code == reset.Code {
			return oops.Code("RESET_CONFLICT").Wrap(auth.ErrConflict)
		}
	}
	cp := *reset
	r.resets[reset.UserID] = &cp
	return nil
}

func (r *ResetRepo) DeleteByUser(_ context.Context, userID ulid.ULID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return false, oops.Errorf("store unavailable")
	}
	_, ok := r.resets[userID]
	delete(r.resets, userID)
	return ok, nil
}

// ProfileRepo is an in-memory ProfileRepository.
type ProfileRepo struct {
	mu       sync.Mutex
	profiles map[ulid.ULID]*auth.UserProfile // keyed by user ID

	FailAll bool
}

// NewProfileRepo creates an empty ProfileRepo.
func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{profiles: make(map[ulid.ULID]*auth.UserProfile)}
}

func (r *ProfileRepo) Create(_ context.Context, profile *auth.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return oops.Errorf("store unavailable")
	}
	if _, ok := r.profiles[profile.UserID]; ok {
		return oops.Code("PROFILE_CONFLICT").Wrap(auth.ErrConflict)
	}
	cp := *profile
	r.profiles[profile.UserID] = &cp
	return nil
}

func (r *ProfileRepo) GetByUser(_ context.Context, userID ulid.ULID) (*auth.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAll {
		return nil, oops.Errorf("store unavailable")
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, oops.Code("PROFILE_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Verify interfaces are satisfied.
var (
	_ auth.GameRepository    = (*GameRepo)(nil)
	_ auth.UserRepository    = (*UserRepo)(nil)
	_ auth.TokenRepository   = (*TokenRepo)(nil)
	_ auth.ResetRepository   = (*ResetRepo)(nil)
	_ auth.ProfileRepository = (*ProfileRepo)(nil)
)
