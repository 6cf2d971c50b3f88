// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/viperhq/viper/internal/auth"
)

// hintProfile is the relation-expansion hint for including profile data in
// login and authorise responses. Hints outside the endpoint's allow-list
// are ignored.
const hintProfile = "profile"

// UserHandler implements the /user endpoints on top of the pipeline.
type UserHandler struct {
	users    auth.UserRepository
	profiles auth.ProfileRepository
	issuer   *auth.TokenIssuer
	hasher   auth.PasswordHasher
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users auth.UserRepository, profiles auth.ProfileRepository, issuer *auth.TokenIssuer, hasher auth.PasswordHasher) (*UserHandler, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if profiles == nil {
		return nil, oops.Errorf("profiles repository is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &UserHandler{users: users, profiles: profiles, issuer: issuer, hasher: hasher}, nil
}

// Login authenticates a user by username and password, atomically replaces
// any prior token with a fresh one, and returns the user data plus the new
// token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	rc := FromContext(r.Context())
	if rc.User != nil {
		return NewError(KindToken, "Already logged in")
	}

	username, _ := rc.Arguments["username"].(string)
	password, _ := rc.Arguments["password"].(string)
	if username == "" || password == "" {
		return NewError(KindValidation, "Username and password are required")
	}

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return NewError(KindArgument, "Incorrect username")
		}
		return WrapError(KindUnavailable, "Service unavailable", err)
	}

	ok, err := h.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return WrapError(KindUnexpected, "Internal error", err)
	}
	if !ok {
		return NewError(KindArgument, "Incorrect password")
	}

	token, err := h.issuer.IssueToken(r.Context(), user.ID)
	if err != nil {
		return WrapError(KindUnavailable, "Service unavailable", err)
	}
	TokensIssuedTotal.Inc()

	data, rejection := h.userPayload(r.Context(), rc, user)
	if rejection != nil {
		return rejection
	}
	data["token"] = token.Token

	WriteSuccess(w, map[string]any{"user": data})
	return nil
}

// Register creates a new user with an empty profile. When the autologin
// argument is present a token is issued so the user can start immediately.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	rc := FromContext(r.Context())
	if rc.User != nil {
		return NewError(KindToken, "Already logged in")
	}

	username, _ := rc.Arguments["username"].(string)
	password, _ := rc.Arguments["password"].(string)
	email, _ := rc.Arguments["email"].(string)

	if err := auth.ValidateUsername(username); err != nil {
		return WrapError(KindValidation, "Username must be at least 3 characters", err)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return WrapError(KindValidation, "Password must be at least 6 characters", err)
	}
	if err := auth.ValidateEmail(email); err != nil {
		return WrapError(KindValidation, "A valid email address is required", err)
	}

	hash, err := h.hasher.Hash(password)
	if err != nil {
		return WrapError(KindUnexpected, "Internal error", err)
	}

	user, err := auth.NewUser(username, email, hash)
	if err != nil {
		return WrapError(KindUnexpected, "Internal error", err)
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return NewError(KindValidation, "Username or email already taken")
		}
		return WrapError(KindUnavailable, "Service unavailable", err)
	}

	// Every account gets a profile row, populated with whatever name data
	// the client sent along.
	firstName, _ := rc.Arguments["first_name"].(string)
	lastName, _ := rc.Arguments["last_name"].(string)
	profile := auth.NewUserProfile(user.ID, firstName, lastName)
	if err := h.profiles.Create(r.Context(), profile); err != nil {
		return WrapError(KindUnavailable, "Service unavailable", err)
	}

	data := userView(user)
	if _, autologin := rc.Arguments["autologin"]; autologin {
		token, err := h.issuer.IssueToken(r.Context(), user.ID)
		if err != nil {
			return WrapError(KindUnknown, "Unable to generate user token", err)
		}
		TokensIssuedTotal.Inc()
		data["token"] = token.Token
	}

	WriteSuccess(w, map[string]any{"user": data})
	return nil
}

// Authorise confirms that the presented token is valid and returns the
// owning user's data. Games use it to re-validate a stored token.
func (h *UserHandler) Authorise(w http.ResponseWriter, r *http.Request) error {
	rc := FromContext(r.Context())
	if rc.User == nil {
		return NewError(KindToken, "Invalid token")
	}

	data, rejection := h.userPayload(r.Context(), rc, rc.User)
	if rejection != nil {
		return rejection
	}

	WriteSuccess(w, map[string]any{"user": data})
	return nil
}

// Logout revokes the authenticated user's active token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	rc := FromContext(r.Context())
	if rc.User == nil {
		return NewError(KindToken, "No token provided")
	}

	existed, err := h.issuer.RevokeToken(r.Context(), rc.User.ID)
	if err != nil {
		return WrapError(KindUnavailable, "Service unavailable", err)
	}
	if !existed {
		return NewError(KindToken, "No active token")
	}

	WriteSuccess(w, nil)
	return nil
}

// Reset issues the user's outstanding password reset code, creating one
// only if none exists. Delivery of the code is out of band.
func (h *UserHandler) Reset(w http.ResponseWriter, r *http.Request) error {
	rc := FromContext(r.Context())
	if rc.User == nil {
		return NewError(KindToken, "No token provided")
	}

	if _, err := h.issuer.IssueResetCode(r.Context(), rc.User.ID); err != nil {
		return WrapError(KindUnavailable, "Service unavailable", err)
	}

	WriteSuccess(w, nil)
	return nil
}

// userPayload builds the response view of a user, honoring the profile
// expansion hint.
func (h *UserHandler) userPayload(ctx context.Context, rc *RequestContext, user *auth.User) (map[string]any, *Error) {
	data := userView(user)

	if rc.HasHint(hintProfile) {
		profile, err := h.profiles.GetByUser(ctx, user.ID)
		if err != nil {
			if !errors.Is(err, auth.ErrNotFound) {
				return nil, WrapError(KindUnavailable, "Service unavailable", err)
			}
		} else {
			data["profile"] = profileView(profile)
		}
	}

	return data, nil
}

// userView shapes a user for responses. Internal IDs and the password hash
// never appear.
func userView(user *auth.User) map[string]any {
	return map[string]any{
		"username":   user.Username,
		"email":      user.Email,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// profileView shapes a profile for responses.
func profileView(profile *auth.UserProfile) map[string]any {
	view := map[string]any{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"gender":     profile.Gender,
	}
	if profile.DOB != nil {
		view["dob"] = profile.DOB.UTC().Format("2006-01-02")
	}
	return view
}
