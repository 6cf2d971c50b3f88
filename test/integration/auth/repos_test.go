// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

//go:build integration

package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/viperhq/viper/internal/auth"
	authpg "github.com/viperhq/viper/internal/auth/postgres"
)

var _ = Describe("GameRepository", func() {
	var (
		ctx  context.Context
		repo *authpg.GameRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		repo = authpg.NewGameRepository(env.pool)
	})

	It("round-trips a game through create and lookup by key", func() {
		game, err := auth.NewGame("Integration Game", "created by the suite")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, game)).To(Succeed())

		got, err := repo.GetByKey(ctx, game.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(game.ID))
		Expect(got.Name).To(Equal("Integration Game"))
		Expect(got.Secret).To(Equal(game.Secret))
		Expect(got.Active).To(BeTrue())
	})

	It("rejects a second game with the same key", func() {
		game, err := auth.NewGame("First", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, game)).To(Succeed())

		dup, err := auth.NewGame("Second", "")
		Expect(err).NotTo(HaveOccurred())
		dup.Key = game.Key

		err = repo.Create(ctx, dup)
		Expect(err).To(MatchError(auth.ErrConflict))
	})

	It("returns ErrNotFound for an unknown key", func() {
		_, err := repo.GetByKey(ctx, "00000000000000000000000000000000")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("lists games in creation order", func() {
		first, err := auth.NewGame("First", "")
		Expect(err).NotTo(HaveOccurred())
		second, err := auth.NewGame("Second", "")
		Expect(err).NotTo(HaveOccurred())
		second.CreatedAt = first.CreatedAt.Add(time.Millisecond)

		Expect(repo.Create(ctx, first)).To(Succeed())
		Expect(repo.Create(ctx, second)).To(Succeed())

		games, err := repo.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(games).To(HaveLen(2))
		Expect(games[0].Name).To(Equal("First"))
		Expect(games[1].Name).To(Equal("Second"))
	})

	It("rotates a game secret", func() {
		game, err := auth.NewGame("Rotate Me", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, game)).To(Succeed())

		newSecret, err := auth.GenerateGameSecret()
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.UpdateSecret(ctx, game.ID, newSecret)).To(Succeed())

		got, err := repo.GetByKey(ctx, game.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Secret).To(Equal(newSecret))
	})
})

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *authpg.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		repo = authpg.NewUserRepository(env.pool)
	})

	newUser := func(username, email string) *auth.User {
		user, err := auth.NewUser(username, email, "$2a$10$notarealhashbutlongenoughtostore")
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	It("round-trips a user by id and username", func() {
		user := newUser("integrationuser", "integration@example.com")
		Expect(repo.Create(ctx, user)).To(Succeed())

		byID, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Username).To(Equal("integrationuser"))

		byName, err := repo.GetByUsername(ctx, "integrationuser")
		Expect(err).NotTo(HaveOccurred())
		Expect(byName.ID).To(Equal(user.ID))
	})

	It("rejects duplicate usernames and emails", func() {
		Expect(repo.Create(ctx, newUser("taken", "one@example.com"))).To(Succeed())

		err := repo.Create(ctx, newUser("taken", "two@example.com"))
		Expect(err).To(MatchError(auth.ErrConflict))

		err = repo.Create(ctx, newUser("different", "one@example.com"))
		Expect(err).To(MatchError(auth.ErrConflict))
	})
})

var _ = Describe("TokenRepository", func() {
	var (
		ctx    context.Context
		users  *authpg.UserRepository
		tokens *authpg.TokenRepository
		owner  *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		users = authpg.NewUserRepository(env.pool)
		tokens = authpg.NewTokenRepository(env.pool)

		var err error
		owner, err = auth.NewUser("tokenowner", "owner@example.com", "$2a$10$notarealhashbutlongenoughtostore")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, owner)).To(Succeed())
	})

	issue := func(user *auth.User, value string) *auth.UserToken {
		token, err := auth.NewUserToken(user.ID, value)
		Expect(err).NotTo(HaveOccurred())
		Expect(tokens.Replace(ctx, token)).To(Succeed())
		return token
	}

	It("resolves a token to its owning user", func() {
		issue(owner, "abcdefabcdefabcdefabcdefabcdef01")

		got, gotUser, err := tokens.GetByToken(ctx, "abcdefabcdefabcdefabcdefabcdef01")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(owner.ID))
		Expect(gotUser.Username).To(Equal("tokenowner"))
	})

	It("replaces the previous token for the same user", func() {
		issue(owner, "abcdefabcdefabcdefabcdefabcdef01")
		issue(owner, "abcdefabcdefabcdefabcdefabcdef02")

		_, _, err := tokens.GetByToken(ctx, "abcdefabcdefabcdefabcdefabcdef01")
		Expect(err).To(MatchError(auth.ErrNotFound))

		got, _, err := tokens.GetByToken(ctx, "abcdefabcdefabcdefabcdefabcdef02")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(owner.ID))
	})

	It("reports a conflict when another user holds the token value", func() {
		other, err := auth.NewUser("otheruser", "other@example.com", "$2a$10$notarealhashbutlongenoughtostore")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, other)).To(Succeed())

		issue(owner, "abcdefabcdefabcdefabcdefabcdef01")

		clash, err := auth.NewUserToken(other.ID, "abcdefabcdefabcdefabcdefabcdef01")
		Expect(err).NotTo(HaveOccurred())
		err = tokens.Replace(ctx, clash)
		Expect(err).To(MatchError(auth.ErrConflict))

		// The failed replace must not have deleted the other user's rows.
		got, _, err := tokens.GetByToken(ctx, "abcdefabcdefabcdefabcdefabcdef01")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(owner.ID))
	})

	It("reports whether a delete removed anything", func() {
		issue(owner, "abcdefabcdefabcdefabcdefabcdef01")

		existed, err := tokens.DeleteByUser(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(existed).To(BeTrue())

		existed, err = tokens.DeleteByUser(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(existed).To(BeFalse())
	})

	It("cascades token deletion when the user row is removed", func() {
		issue(owner, "abcdefabcdefabcdefabcdefabcdef01")

		_, err := env.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", owner.ID.String())
		Expect(err).NotTo(HaveOccurred())

		_, _, err = tokens.GetByToken(ctx, "abcdefabcdefabcdefabcdefabcdef01")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})

var _ = Describe("ResetRepository", func() {
	var (
		ctx    context.Context
		users  *authpg.UserRepository
		resets *authpg.ResetRepository
		owner  *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		users = authpg.NewUserRepository(env.pool)
		resets = authpg.NewResetRepository(env.pool)

		var err error
		owner, err = auth.NewUser("resetowner", "reset@example.com", "$2a$10$notarealhashbutlongenoughtostore")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, owner)).To(Succeed())
	})

	It("stores and retrieves an outstanding reset code", func() {
		reset, err := auth.NewUserResetCode(owner.ID, "resetcode0000001")
		Expect(err).NotTo(HaveOccurred())
		Expect(resets.Insert(ctx, reset)).To(Succeed())

		got, err := resets.GetByUser(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Code).To(Equal("resetcode0000001"))
	})

	It("allows at most one outstanding reset per user", func() {
		first, err := auth.NewUserResetCode(owner.ID, "resetcode0000001")
		Expect(err).NotTo(HaveOccurred())
		Expect(resets.Insert(ctx, first)).To(Succeed())

		second, err := auth.NewUserResetCode(owner.ID, "resetcode0000002")
		Expect(err).NotTo(HaveOccurred())
		err = resets.Insert(ctx, second)
		Expect(err).To(MatchError(auth.ErrConflict))
	})

	It("clears the outstanding reset on delete", func() {
		reset, err := auth.NewUserResetCode(owner.ID, "resetcode0000001")
		Expect(err).NotTo(HaveOccurred())
		Expect(resets.Insert(ctx, reset)).To(Succeed())

		existed, err := resets.DeleteByUser(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(existed).To(BeTrue())

		_, err = resets.GetByUser(ctx, owner.ID)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})

var _ = Describe("ProfileRepository", func() {
	var (
		ctx      context.Context
		users    *authpg.UserRepository
		profiles *authpg.ProfileRepository
		owner    *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateAll(ctx, env.pool)
		users = authpg.NewUserRepository(env.pool)
		profiles = authpg.NewProfileRepository(env.pool)

		var err error
		owner, err = auth.NewUser("profileowner", "profile@example.com", "$2a$10$notarealhashbutlongenoughtostore")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, owner)).To(Succeed())
	})

	It("stores an empty profile with a null date of birth", func() {
		profile := auth.NewUserProfile(owner.ID, "", "")
		Expect(profiles.Create(ctx, profile)).To(Succeed())

		got, err := profiles.GetByUser(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.UserID).To(Equal(owner.ID))
		Expect(got.DOB).To(BeNil())
	})

	It("rejects a second profile for the same user", func() {
		Expect(profiles.Create(ctx, auth.NewUserProfile(owner.ID, "", ""))).To(Succeed())

		err := profiles.Create(ctx, auth.NewUserProfile(owner.ID, "", ""))
		Expect(err).To(MatchError(auth.ErrConflict))
	})
})
