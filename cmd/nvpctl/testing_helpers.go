package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"
)

// useTempDir points --dir at a fresh directory and resets the global flags.
func useTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	regionDir = dir
	verbose = false
	quiet = false
	jsonOut = false
	logLevel = ""
	initSize = datasize.MB
	allocSize = 0
	createSize = 4 * datasize.KB
	catHex = false
	mapWidth = 64
	return dir
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return <-done, fnErr
}

// mustRun runs fn and fails the test on error.
func mustRun(t *testing.T, fn func() error) string {
	t.Helper()
	out, err := captureOutput(t, fn)
	if err != nil {
		t.Fatalf("command failed: %v\nOutput: %s", err, out)
	}
	return out
}

// assertJSON checks that output is valid JSON and decodes it into v
func assertJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
