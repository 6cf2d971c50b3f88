// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// DefaultAlphabet is the character set used for tokens and reset codes when
// no alphabet is configured.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Default generated-string lengths. The reset code is short because it is
// typed by a human from an email.
const (
	DefaultTokenLength = 32
	DefaultResetLength = 8
)

// GeneratorConfig controls random token and reset code generation. Length
// and alphabet are configuration, never per-call-site constants.
type GeneratorConfig struct {
	TokenLength   int
	TokenAlphabet string
	ResetLength   int
	ResetAlphabet string
}

// DefaultGeneratorConfig returns the production defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		TokenLength:   DefaultTokenLength,
		TokenAlphabet: DefaultAlphabet,
		ResetLength:   DefaultResetLength,
		ResetAlphabet: DefaultAlphabet,
	}
}

// Validate checks the configuration is usable.
func (c GeneratorConfig) Validate() error {
	if c.TokenLength <= 0 {
		return oops.Code("GENERATOR_INVALID_CONFIG").Errorf("token length must be positive, got %d", c.TokenLength)
	}
	if c.ResetLength <= 0 {
		return oops.Code("GENERATOR_INVALID_CONFIG").Errorf("reset length must be positive, got %d", c.ResetLength)
	}
	if len(c.TokenAlphabet) < 2 {
		return oops.Code("GENERATOR_INVALID_CONFIG").Errorf("token alphabet needs at least 2 characters")
	}
	if len(c.ResetAlphabet) < 2 {
		return oops.Code("GENERATOR_INVALID_CONFIG").Errorf("reset alphabet needs at least 2 characters")
	}
	return nil
}

// RandomString returns a string of length n drawn uniformly from alphabet
// using crypto/rand. Rejection sampling keeps the distribution uniform when
// the alphabet size does not divide 256.
func RandomString(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", oops.Code("RANDOM_INVALID_LENGTH").Errorf("length must be positive, got %d", n)
	}
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return "", oops.Code("RANDOM_INVALID_ALPHABET").Errorf("alphabet size must be in [2,256], got %d", len(alphabet))
	}

	// Largest multiple of len(alphabet) that fits in a byte; bytes at or
	// above it are discarded to avoid modulo bias.
	limit := 256 - 256%len(alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", oops.Code("RANDOM_READ_FAILED").Wrap(err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// GenerateGameKey returns a new 32-character API key.
func GenerateGameKey() (string, error) {
	return randomHex(GameKeyLength)
}

// GenerateGameSecret returns a new 64-character hex secret.
func GenerateGameSecret() (string, error) {
	return randomHex(GameSecretLength)
}

// randomHex returns n lowercase hex characters from crypto/rand.
func randomHex(n int) (string, error) {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("RANDOM_READ_FAILED").Wrap(err)
	}
	return hex.EncodeToString(buf)[:n], nil
}
