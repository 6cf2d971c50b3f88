// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

//go:build integration

package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/viperhq/viper/internal/auth"
	authpg "github.com/viperhq/viper/internal/auth/postgres"
)

// envelope mirrors the wire response shape.
type envelope struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// seedGame creates a fresh game directly in the database and returns its
// credentials.
func seedGame(ctx context.Context) *auth.Game {
	game, err := auth.NewGame("Flow Test Game", "")
	Expect(err).NotTo(HaveOccurred())
	Expect(authpg.NewGameRepository(env.pool).Create(ctx, game)).To(Succeed())
	return game
}

// signedPost sends a write-style request with arguments signed using the
// game's secret, exactly as a client would.
func signedPost(path string, game *auth.Game, args map[string]any, extra url.Values) envelope {
	raw, err := json.Marshal(args)
	Expect(err).NotTo(HaveOccurred())

	form := url.Values{}
	form.Set("key", game.Key)
	form.Set("arguments", string(raw))
	form.Set("signature", auth.Sign(raw, game.Secret))
	for k, vs := range extra {
		for _, v := range vs {
			form.Add(k, v)
		}
	}

	resp, err := http.PostForm(env.frontend.URL+path, form)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var body envelope
	Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
	return body
}

// get sends a read-style request with the game key in the query string.
func get(path string, game *auth.Game, query url.Values) envelope {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", game.Key)

	resp, err := http.Get(env.frontend.URL + path + "?" + query.Encode())
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var body envelope
	Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
	return body
}

func userData(body envelope) map[string]any {
	user, ok := body.Data["user"].(map[string]any)
	Expect(ok).To(BeTrue(), "response should carry a user object")
	return user
}

var _ = Describe("User lifecycle", func() {
	var (
		ctx  context.Context
		game *auth.Game
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := env.pool.Exec(ctx, "TRUNCATE users_resets, users_tokens, users_profiles, users, games CASCADE")
		Expect(err).NotTo(HaveOccurred())
		game = seedGame(ctx)
	})

	It("registers, logs in, authorises and logs out", func() {
		body := signedPost("/user/register", game, map[string]any{
			"username":   "flowuser",
			"password":   "secretpass",
			"email":      "flow@example.com",
			"first_name": "Flow",
			"last_name":  "User",
		}, nil)
		Expect(body.Status).To(Equal("success"))
		Expect(userData(body)["username"]).To(Equal("flowuser"))
		Expect(userData(body)).NotTo(HaveKey("token"))

		body = signedPost("/user/login", game, map[string]any{
			"username": "flowuser",
			"password": "secretpass",
		}, nil)
		Expect(body.Status).To(Equal("success"))
		token, _ := userData(body)["token"].(string)
		Expect(token).NotTo(BeEmpty())

		body = get("/user/authorise", game, url.Values{"token": {token}})
		Expect(body.Status).To(Equal("success"))
		Expect(userData(body)["username"]).To(Equal("flowuser"))

		body = signedPost("/user/logout", game, map[string]any{}, url.Values{"token": {token}})
		Expect(body.Status).To(Equal("success"))

		// The revoked token must no longer authenticate.
		body = get("/user/authorise", game, url.Values{"token": {token}})
		Expect(body.Status).To(Equal("failure"))
		Expect(body.Error.Code).To(Equal(8))
	})

	It("issues a token at registration when autologin is requested", func() {
		body := signedPost("/user/register", game, map[string]any{
			"username":  "autouser",
			"password":  "secretpass",
			"email":     "auto@example.com",
			"autologin": true,
		}, nil)
		Expect(body.Status).To(Equal("success"))

		token, _ := userData(body)["token"].(string)
		Expect(token).NotTo(BeEmpty())

		body = get("/user/authorise", game, url.Values{"token": {token}})
		Expect(body.Status).To(Equal("success"))
	})

	It("replaces the old token on a second login", func() {
		signedPost("/user/register", game, map[string]any{
			"username": "replays",
			"password": "secretpass",
			"email":    "replays@example.com",
		}, nil)

		login := func() string {
			body := signedPost("/user/login", game, map[string]any{
				"username": "replays",
				"password": "secretpass",
			}, nil)
			Expect(body.Status).To(Equal("success"))
			token, _ := userData(body)["token"].(string)
			return token
		}

		first := login()
		second := login()
		Expect(second).NotTo(Equal(first))

		Expect(get("/user/authorise", game, url.Values{"token": {first}}).Status).To(Equal("failure"))
		Expect(get("/user/authorise", game, url.Values{"token": {second}}).Status).To(Equal("success"))
	})

	It("expands the profile when the login payload asks for it", func() {
		signedPost("/user/register", game, map[string]any{
			"username":   "hinted",
			"password":   "secretpass",
			"email":      "hinted@example.com",
			"first_name": "Hinted",
			"last_name":  "Person",
		}, nil)

		body := signedPost("/user/login", game, map[string]any{
			"username": "hinted",
			"password": "secretpass",
			"with":     "profile",
		}, nil)
		Expect(body.Status).To(Equal("success"))

		profile, ok := userData(body)["profile"].(map[string]any)
		Expect(ok).To(BeTrue(), "login response should expand the profile")
		Expect(profile["first_name"]).To(Equal("Hinted"))
	})

	It("persists a single reset code across repeated requests", func() {
		body := signedPost("/user/register", game, map[string]any{
			"username":  "resetter",
			"password":  "secretpass",
			"email":     "resetter@example.com",
			"autologin": true,
		}, nil)
		token, _ := userData(body)["token"].(string)

		Expect(signedPost("/user/reset", game, map[string]any{}, url.Values{"token": {token}}).Status).To(Equal("success"))
		Expect(signedPost("/user/reset", game, map[string]any{}, url.Values{"token": {token}}).Status).To(Equal("success"))

		var count int
		err := env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users_resets").Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})
})

var _ = Describe("Request rejection", func() {
	var (
		ctx  context.Context
		game *auth.Game
	)

	BeforeEach(func() {
		ctx = context.Background()
		_, err := env.pool.Exec(ctx, "TRUNCATE users_resets, users_tokens, users_profiles, users, games CASCADE")
		Expect(err).NotTo(HaveOccurred())
		game = seedGame(ctx)
	})

	It("rejects an unknown game key with the api error code", func() {
		resp, err := http.PostForm(env.frontend.URL+"/user/login", url.Values{
			"key":       {"00000000000000000000000000000000"},
			"arguments": {"{}"},
			"signature": {auth.Sign([]byte("{}"), "wrong")},
		})
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

		var body envelope
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(3))
	})

	It("rejects an inactive game", func() {
		_, err := env.pool.Exec(ctx, "UPDATE games SET active = FALSE WHERE id = $1", game.ID.String())
		Expect(err).NotTo(HaveOccurred())

		body := signedPost("/user/login", game, map[string]any{}, nil)
		Expect(body.Status).To(Equal("failure"))
		Expect(body.Error.Message).To(Equal("Inactive game"))
	})

	It("rejects a payload signed with the wrong secret", func() {
		raw := `{"username":"x","password":"y"}`
		resp, err := http.PostForm(env.frontend.URL+"/user/login", url.Values{
			"key":       {game.Key},
			"arguments": {raw},
			"signature": {auth.Sign([]byte(raw), "not the secret")},
		})
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		var body envelope
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(4))
	})

	It("rejects a tampered argument payload", func() {
		raw, err := json.Marshal(map[string]any{"username": "x", "password": "y"})
		Expect(err).NotTo(HaveOccurred())
		sig := auth.Sign(raw, game.Secret)

		tampered := strings.Replace(string(raw), "x", "z", 1)
		resp, err := http.PostForm(env.frontend.URL+"/user/login", url.Values{
			"key":       {game.Key},
			"arguments": {tampered},
			"signature": {sig},
		})
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("answers unknown routes with the method error code", func() {
		resp, err := http.Get(env.frontend.URL + "/no/such/route?key=" + game.Key)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))

		var body envelope
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(9))
	})
})
