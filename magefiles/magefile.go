//go:build mage

// Package main provides build targets for the appraiser using Mage.
//
// Usage:
//
//	mage build         Compile the appraiser binary to bin/
//	mage test          Run all tests
//	mage testPostgres  Run the PostgreSQL store tests (needs APPRAISAL_TEST_POSTGRES_DSN)
//	mage golden        Regenerate renderer golden files
//	mage lint          Run golangci-lint
//	mage serve         Build and run the record store server
//	mage clean         Remove build artifacts
//	mage install       Install appraiser to GOPATH/bin
package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "appraiser"
	binaryDir  = "bin"
	cmdDir     = "./cmd/appraiser"

	envPostgresDSN = "APPRAISAL_TEST_POSTGRES_DSN"
)

// Build compiles the appraiser binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs every package's tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestPostgres runs the PostgreSQL record store tests against a live server.
func TestPostgres() error {
	if os.Getenv(envPostgresDSN) == "" {
		return errors.New(envPostgresDSN + " must point at a disposable database")
	}
	return sh.RunV("go", "test", "-count=1", "-v", "./internal/postgres/...")
}

// Golden rewrites the renderer golden files from the current output.
func Golden() error {
	return sh.RunV("go", "test", "./internal/render/...", "-update")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Serve builds the binary and runs the record store server in the
// foreground with the current configuration.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}
