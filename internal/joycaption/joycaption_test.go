package joycaption

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/captionforge/captionforge/internal/providers"
)

// writeScript stands in for a JoyCaption install; the adapter only cares
// about stdout, stderr, and the exit code.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skipf("/bin/sh unavailable: %v", err)
	}
	path := filepath.Join(t.TempDir(), "joycaption.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCaptionReturnsTrimmedStdout(t *testing.T) {
	j := &JoyCaption{
		PythonPath: "/bin/sh",
		ScriptPath: writeScript(t, `echo "  dog, outdoors  "`),
	}

	got, err := j.Caption(context.Background(), providers.Request{ImagePath: testImage(t)})
	if err != nil {
		t.Fatalf("Caption failed: %v", err)
	}
	if got != "dog, outdoors" {
		t.Errorf("Expected trimmed caption, got %q", got)
	}
}

func TestCaptionReportsStderrOnFailure(t *testing.T) {
	j := &JoyCaption{
		PythonPath: "/bin/sh",
		ScriptPath: writeScript(t, `echo "model not found" >&2; exit 1`),
	}

	_, err := j.Caption(context.Background(), providers.Request{ImagePath: testImage(t)})
	if err == nil {
		t.Fatal("Expected error for failing process")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}

func TestCaptionKillsHungProcess(t *testing.T) {
	j := &JoyCaption{
		PythonPath: "/bin/sh",
		ScriptPath: writeScript(t, `exec sleep 60`),
		Timeout:    100 * time.Millisecond,
	}

	start := time.Now()
	_, err := j.Caption(context.Background(), providers.Request{ImagePath: testImage(t)})
	if err == nil {
		t.Fatal("Expected error for hung process")
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Errorf("Caption blocked for %v instead of honoring its deadline", elapsed)
	}
}
