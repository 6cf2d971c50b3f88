// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/samber/oops"

	"github.com/viperhq/viper/internal/auth"
)

// Request carries the authentication fields extracted from a transport
// request. Arguments holds the exact raw bytes as transmitted; the HMAC is
// computed over them before any decoding.
type Request struct {
	Key       string
	Token     string
	With      string
	Arguments []byte
	Signature string

	// Write marks write-style requests, which must carry a signed
	// argument payload.
	Write bool
}

// RequestContext is the request-scoped result of the pipeline: the resolved
// game, the optionally resolved user, the decoded argument map and the
// requested relation-expansion hints. It is created at the start of the
// request, mutated only by pipeline stages, and discarded at request end.
type RequestContext struct {
	Game      *auth.Game
	User      *auth.User
	Arguments map[string]any
	With      []string
}

// HasHint reports whether the client requested the given relation expansion.
func (rc *RequestContext) HasHint(name string) bool {
	for _, h := range rc.With {
		if h == name {
			return true
		}
	}
	return false
}

// ContextBuilder orchestrates game authentication, signature verification
// and token authentication into a single per-request pipeline.
type ContextBuilder struct {
	games  *auth.GameAuthenticator
	tokens *auth.TokenAuthenticator
}

// NewContextBuilder creates a ContextBuilder.
func NewContextBuilder(games *auth.GameAuthenticator, tokens *auth.TokenAuthenticator) (*ContextBuilder, error) {
	if games == nil {
		return nil, oops.Errorf("game authenticator is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token authenticator is required")
	}
	return &ContextBuilder{games: games, tokens: tokens}, nil
}

// Build runs the pipeline: game verification, then signature verification
// for write-style requests, then token authentication when a token is
// present. It is a pure function from the request fields to a ready context
// or a structured rejection; the first failing stage short-circuits the
// rest and no partial context is ever returned.
func (b *ContextBuilder) Build(ctx context.Context, req Request) (*RequestContext, *Error) {
	if req.Key == "" {
		return nil, NewError(KindAPI, "Invalid credentials")
	}

	game, err := b.games.Authenticate(ctx, req.Key)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotFound):
			return nil, NewError(KindAPI, "Unknown game")
		case errors.Is(err, auth.ErrInactiveGame):
			return nil, NewError(KindAPI, "Inactive game")
		default:
			return nil, WrapError(KindUnavailable, "Service unavailable", err)
		}
	}

	rc := &RequestContext{Game: game}

	if req.Write {
		if len(req.Arguments) == 0 || req.Signature == "" {
			return nil, NewError(KindIncomplete, "Incomplete request")
		}
		if !auth.VerifySignature(req.Arguments, req.Signature, game.Secret) {
			return nil, NewError(KindSignature, "Invalid signature")
		}

		args := map[string]any{}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, WrapError(KindArgument, "Malformed arguments", err)
		}
		rc.Arguments = args

		// Write-style requests carry expansion hints inside the signed
		// payload rather than as a bare field.
		if hints, ok := args["with"].(string); ok {
			rc.With = parseHints(hints)
		}
	} else {
		rc.With = parseHints(req.With)
	}

	if req.Token != "" {
		user, err := b.tokens.Authenticate(ctx, req.Token)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return nil, NewError(KindToken, "Invalid token")
			}
			return nil, WrapError(KindUnavailable, "Service unavailable", err)
		}
		rc.User = user
	}

	return rc, nil
}

// parseHints splits a comma-separated hint list, dropping empty entries.
func parseHints(raw string) []string {
	if raw == "" {
		return nil
	}
	var hints []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hints = append(hints, h)
		}
	}
	return hints
}
