//go:build mage
// +build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir   = "bin"
	coverOut = "coverage.out"
	appName  = "sslrelay"
	webPkg   = "./cmd/web"
)

var Default = Build

// Run starts the relay with go run (reads .env).
func Run() error {
	return sh.RunV("go", "run", webPkg)
}

// Build compiles a static binary into bin/, stamped with the git revision.
func Build() error {
	mg.Deps(Tidy)

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(binDir, appName+exeSuffix())
	fmt.Println("Building:", out)

	ldflags := "-s -w"
	if rev := gitRevision(); rev != "" {
		ldflags += " -X main.revision=" + rev
	}
	env := map[string]string{"CGO_ENABLED": "0"}
	return sh.RunWithV(env, "go", "build", "-trimpath", "-ldflags", ldflags, "-o", out, webPkg)
}

func Test() error {
	return sh.RunV("go", "test", "./...", "-count=1")
}

// TestRace runs the suite under the race detector; the coordinator's
// concurrency tests are only meaningful here.
func TestRace() error {
	if runtime.GOOS == "windows" {
		fmt.Println("Note: -race on Windows depends on your toolchain.")
	}
	return sh.RunV("go", "test", "./...", "-race", "-count=1")
}

// Cover writes coverage.out and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "./...", "-count=1", "-coverprofile="+coverOut); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverOut)
}

func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

func Fmt() error {
	return sh.RunV("gofmt", "-s", "-w", "./cmd", "./internal", "./magefile.go")
}

func Lint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		return errors.New("golangci-lint not found, install it with: mage tools")
	}
	return sh.RunV("golangci-lint", "run", "--timeout=3m", "./...")
}

// Check is the pre-push gate.
func Check() {
	mg.SerialDeps(Fmt, Vet, Lint, TestRace)
}

func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

func Clean() {
	_ = os.RemoveAll(binDir)
	_ = os.Remove(coverOut)
}

// Migrate creates or updates the relay tables in DB_DSN.
func Migrate() error {
	if os.Getenv("DB_DSN") == "" {
		return errors.New("DB_DSN is not set")
	}
	return sh.RunV("go", "run", "./cmd/tools/createtable")
}

// MockIPN posts a VALID notification for TRAN_ID (and optional VAL_ID) to
// the local relay.
func MockIPN() error {
	tranID := os.Getenv("TRAN_ID")
	if tranID == "" {
		return errors.New("TRAN_ID is not set")
	}
	args := []string{"run", "./cmd/tools/mockipn", "-tran-id", tranID}
	if valID := os.Getenv("VAL_ID"); valID != "" {
		args = append(args, "-val-id", valID)
	}
	return sh.RunV("go", args...)
}

// Tools installs golangci-lint v2.
func Tools() error {
	return sh.RunV("go", "install", "github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest")
}

func gitRevision() string {
	out, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
