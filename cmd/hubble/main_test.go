package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isolate(t *testing.T) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("HUBBLE_SETTINGS", "")
}

func writeRC(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hubblerc")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write rc: %v", err)
	}
	return path
}

func TestRunFileFormat(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"hubble", "--file-format"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "[hubble]") {
		t.Fatalf("expected example config, got %q", stdout.String())
	}
}

func TestRunHelpReturnsInsteadOfExiting(t *testing.T) {
	isolate(t)
	rc := writeRC(t, "[hubble]\ndefault-env = dev\n[dev]\ncmd = sh\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"hubble", "--config", rc, "--help"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "usage: hubble") {
		t.Fatalf("expected usage, got %q", stdout.String())
	}
	if strings.Contains(stdout.String(), "Environments Configured") {
		t.Fatalf("expected help to stop before resolving, got %q", stdout.String())
	}
}

func TestRunPassesRemainingArgsToCommand(t *testing.T) {
	isolate(t)
	rc := writeRC(t, "[hubble]\ncmd = sh\n[dev]\nREGION = DFW\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"hubble", "--config", rc, "dev", "-c", `printf '%s %s' "$REGION" "$0"`, "--debug"},
		&stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr %q)", code, stderr.String())
	}
	if got := stdout.String(); got != "DFW --debug" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunReportsErrors(t *testing.T) {
	isolate(t)
	rc := writeRC(t, "[dev]\ncmd = sh\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"hubble", "--config", rc, "missing"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.HasPrefix(stderr.String(), "-- ") || !strings.Contains(stderr.String(), "missing") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestRunMissingConfig(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"hubble", "--config", filepath.Join(t.TempDir(), "none"), "dev"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unable to find config files") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"hubble", "--log-level", "chatty", "dev"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
