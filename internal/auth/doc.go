// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

// Package auth implements the request authentication and credential
// lifecycle pipeline for the Viper API.
//
// # Domain Types
//
// Domain types (Game, User, UserToken, UserResetCode, UserProfile) are
// persisted through repository interfaces declared alongside them. The
// postgres subpackage provides the production implementations; authtest
// provides in-memory fakes for tests.
//
// # Services
//
// Service types coordinate domain operations:
//   - GameAuthenticator - resolves the calling game from an API key
//   - TokenAuthenticator - resolves the calling user from a bearer token
//   - TokenIssuer - issues and revokes user tokens and reset codes
//
// Signature verification (HMAC-SHA1 over the raw argument bytes) is a pure
// function and lives in signature.go.
//
// Services are created with New* constructors that validate dependencies.
package auth
