//go:build mage

// Package main provides development automation.
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build groups commands for producing the Lambda deployment artifact.
type Build mg.Namespace

// Binary cross-compiles the Lambda bootstrap binary for the arm64 runtime.
func (Build) Binary() error {
	if err := os.MkdirAll("build", 0o755); err != nil {
		return err
	}
	env := map[string]string{
		"GOOS":        "linux",
		"GOARCH":      "arm64",
		"CGO_ENABLED": "0",
	}
	return sh.RunWith(env, "go", "build",
		"-tags", "lambda.norpc",
		"-trimpath",
		"-ldflags", "-s -w",
		"-o", filepath.Join("build", "bootstrap"),
		"./cmd/mlops-agent")
}

// Archive zips the bootstrap into the artifact the Lambda service expects.
func (Build) Archive() error {
	mg.Deps(Build.Binary)
	return sh.Run("zip", "-j",
		filepath.Join("build", "mlops-agent.zip"),
		filepath.Join("build", "bootstrap"))
}

// Dev groups commands for local development.
type Dev mg.Namespace

// Test runs the full test suite with the race detector.
func (Dev) Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs the linters.
func (Dev) Lint() error {
	return sh.RunV("golangci-lint", "run")
}
