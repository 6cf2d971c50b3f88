// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Viper Contributors

//go:build integration

package cli_test

import (
	"context"
	"os/exec"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

// runCLI executes the viper binary from source with the suite database.
func runCLI(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = "../../../cmd/viper"
	cmd.Env = append(cmd.Environ(), "DATABASE_URL="+env.connStr)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)
	})

	It("applies the schema and reports the version", func() {
		output, err := runCLI(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)
		Expect(output).To(ContainSubstring("Migrations completed successfully"))

		output, err = runCLI(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "migrate status failed: %s", output)
		Expect(output).To(ContainSubstring("Version 1"))

		var count int
		err = env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM games").Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(0))
	})

	It("rolls the schema back down", func() {
		output, err := runCLI(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)

		output, err = runCLI(ctx, "migrate", "down")
		Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", output)
		Expect(output).To(ContainSubstring("Rollback completed successfully"))

		var exists bool
		err = env.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'games')",
		).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

var _ = Describe("Seed Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx, env.pool)

		output, err := runCLI(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)
	})

	It("creates the fixture games and users", func() {
		output, err := runCLI(ctx, "seed")
		Expect(err).NotTo(HaveOccurred(), "seed failed: %s", output)
		Expect(output).To(ContainSubstring("Created game: Test Game"))
		Expect(output).To(ContainSubstring("Created game: Inactive Game"))
		Expect(output).To(ContainSubstring("Created user: testuser1"))
		Expect(output).To(ContainSubstring("Created user: testuser2"))
		Expect(output).To(ContainSubstring("Seeding complete!"))

		var active bool
		err = env.pool.QueryRow(ctx,
			"SELECT active FROM games WHERE name = 'Inactive Game'",
		).Scan(&active)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeFalse())

		var profiles int
		err = env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users_profiles").Scan(&profiles)
		Expect(err).NotTo(HaveOccurred())
		Expect(profiles).To(Equal(2))
	})

	It("is idempotent across repeated runs", func() {
		output, err := runCLI(ctx, "seed")
		Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", output)
		Expect(output).To(ContainSubstring("Created game: Test Game"))

		output, err = runCLI(ctx, "seed")
		Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output)
		Expect(output).To(ContainSubstring("already exists, skipping"))

		var users int
		err = env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&users)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(Equal(2))
	})

	It("fails without DATABASE_URL", func() {
		cmd := exec.CommandContext(ctx, "go", "run", ".", "seed")
		cmd.Dir = "../../../cmd/viper"
		cmd.Env = append(cmd.Environ(), "DATABASE_URL=")

		output, err := cmd.CombinedOutput()
		Expect(err).To(HaveOccurred())
		Expect(string(output)).To(ContainSubstring("DATABASE_URL"))
	})
})
