package cibuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScratchPrefixUnique(t *testing.T) {
	profile, err := ResolvePlatform("linux-x86-64")
	if err != nil {
		t.Fatal(err)
	}
	got := scratchPrefix(profile)
	want := fmt.Sprintf("%s-%d", profile.Prefix, os.Getpid())
	if got != want {
		t.Errorf("scratchPrefix = %q; want %q", got, want)
	}
}

func TestRemoveScratchBestEffort(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	removeScratch(dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir still present: %v", err)
	}

	// A missing tree is not an error either.
	removeScratch(dir)
}

func TestLockWorkspaceExclusive(t *testing.T) {
	dir := t.TempDir()
	release, err := lockWorkspace(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	if _, err := lockWorkspace(dir); err == nil {
		t.Error("second lock on the same workspace succeeded")
	} else if !strings.Contains(err.Error(), "locked by another run") {
		t.Errorf("second lock error = %v", err)
	}

	release()
	release2, err := lockWorkspace(dir)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	release2()
}
