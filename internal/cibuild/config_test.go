package cibuild

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cibuild.conf")
	content := `# node config
LOG_BUCKET_NAME = ci-logs
TMPDIR="/scratch/tmp"
BROKEN LINE
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got := cfg.Values["LOG_BUCKET_NAME"]; got != "ci-logs" {
		t.Errorf("LOG_BUCKET_NAME = %q; want ci-logs", got)
	}
	if got := cfg.Values["TMPDIR"]; got != "/scratch/tmp" {
		t.Errorf("TMPDIR = %q; want quotes stripped", got)
	}
	if _, ok := cfg.Values["BROKEN LINE"]; ok {
		t.Error("malformed line was not skipped")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("loadConfig on missing file: %v", err)
	}
	if got := cfg.Values["TMPDIR"]; got != "/tmp" {
		t.Errorf("TMPDIR default = %q; want /tmp", got)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cibuild.conf")
	if err := os.WriteFile(path, []byte("CIBUILD_ARCH=linux-i386\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CIBUILD_ARCH", "linux-x86-64")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got := cfg.Values["CIBUILD_ARCH"]; got != "linux-x86-64" {
		t.Errorf("CIBUILD_ARCH = %q; environment should win", got)
	}
}

func TestLoadConfigScanErrorKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cibuild.conf")
	// A line past the scanner's token limit makes scanner.Err() fire.
	long := make([]byte, bufio.MaxScanTokenSize+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := os.WriteFile(path, append([]byte("KEY="), long...), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CIBUILD_ARCH", "linux-x86-64")

	cfg, err := loadConfig(path)
	if err == nil {
		t.Error("loadConfig swallowed the scan error")
	}
	// The error is reported but the config must still be usable.
	if got := cfg.Values["CIBUILD_ARCH"]; got != "linux-x86-64" {
		t.Errorf("CIBUILD_ARCH = %q; env overrides lost on scan error", got)
	}
	if got := cfg.Values["TMPDIR"]; got != "/tmp" {
		t.Errorf("TMPDIR = %q; default lost on scan error", got)
	}
}

func TestJobCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{"99", 99, true},
		{"0", 0, false},
		{"100", 0, false},
		{"", 0, false},
		{"7a", 0, false},
		{"-3", 0, false},
	}
	for _, tt := range tests {
		got, ok := jobCount(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("jobCount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
