//go:build mage

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary  = "gmpcms"
	mainPkg = "./cmd/gmpcms"
)

// Default target when mage runs without arguments.
var Default = BuildLocal

// Build cross-compiles the release binary for linux/amd64 with Green Tea GC.
// chai2010/webp wraps libwebp, so cgo stays enabled.
func Build() error {
	version, err := readVersion()
	if err != nil {
		return err
	}
	fmt.Printf("Building %s %s for linux/amd64...\n", binary, version)
	env := map[string]string{
		"GOOS":         "linux",
		"GOARCH":       "amd64",
		"GOEXPERIMENT": "greenteagc",
		"CGO_ENABLED":  "1",
	}
	return sh.RunWith(env, "go", "build", "-trimpath", "-ldflags", "-s -w", "-o", binary+"-linux-amd64", mainPkg)
}

// BuildLocal builds for the current platform.
func BuildLocal() error {
	fmt.Printf("Building %s for %s/%s...\n", binary, runtime.GOOS, runtime.GOARCH)
	return sh.Run("go", "build", "-o", binary, mainPkg)
}

func readVersion() (string, error) {
	raw, err := os.ReadFile("cmd/gmpcms/VERSION")
	if err != nil {
		return "", fmt.Errorf("read VERSION: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Test namespace groups the test suites.
type Test mg.Namespace

// Unit runs the sqlmock and app.Test suites.
func (Test) Unit() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Integration runs the suites tagged "integration" against TEST_DATABASE_URL
// (falling back to DATABASE_URL).
func (Test) Integration() error {
	return sh.RunV("go", "test", "-tags", "integration", "-count=1", "./...")
}

// All runs unit and integration suites.
func (Test) All() {
	mg.SerialDeps(Test.Unit, Test.Integration)
}

// DB namespace drives the schema and content of the configured database.
type DB mg.Namespace

// Migrate applies pending migrations.
func (DB) Migrate() error {
	mg.Deps(BuildLocal)
	return sh.RunV("./"+binary, "migrate", "up")
}

// Rollback reverts the latest migration.
func (DB) Rollback() error {
	mg.Deps(BuildLocal)
	return sh.RunV("./"+binary, "migrate", "down", "1")
}

// Seed loads SEED_FILE, or seed.yaml, through the content decoders.
func (DB) Seed() error {
	mg.Deps(BuildLocal, DB.Migrate)
	file := os.Getenv("SEED_FILE")
	if file == "" {
		file = "seed.yaml"
	}
	return sh.RunV("./"+binary, "seed", file)
}

// Doctor runs the installation checks.
func (DB) Doctor() error {
	mg.Deps(BuildLocal)
	return sh.RunV("./"+binary, "doctor")
}

// Clean removes build artifacts.
func Clean() {
	for _, f := range []string{binary, binary + "-linux-amd64"} {
		_ = os.Remove(f)
	}
}

// Update upgrades dependencies and tidies go.mod.
func Update() error {
	if err := sh.Run("go", "get", "-u", "./..."); err != nil {
		return err
	}
	return sh.Run("go", "mod", "tidy")
}

// Lint formats and vets the tree.
func Lint() error {
	if err := sh.Run("go", "fmt", "./..."); err != nil {
		return err
	}
	return sh.Run("go", "vet", "./...")
}

// CI downloads modules, lints and runs the unit suite.
func CI() error {
	if err := sh.Run("go", "mod", "download"); err != nil {
		return err
	}
	mg.SerialDeps(Lint, Test.Unit)
	fmt.Println("All CI checks passed!")
	return nil
}
