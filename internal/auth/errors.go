// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a uniqueness constraint.
// Token and reset code issuance treat it as a signal to regenerate and retry.
var ErrConflict = errors.New("conflict")

// ErrInactiveGame is returned when an API key resolves to a deactivated game.
var ErrInactiveGame = errors.New("inactive game")
