package cibuild

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestBuildLogCompress(t *testing.T) {
	log, err := newBuildLog(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatalf("newBuildLog: %v", err)
	}

	const payload = "configure: ok\nmake: ok\n"
	if _, err := io.WriteString(log.file, payload); err != nil {
		t.Fatal(err)
	}

	xzPath, err := log.Compress()
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !strings.HasSuffix(xzPath, ".xz") {
		t.Errorf("compressed path = %q", xzPath)
	}

	f, err := os.Open(xzPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatalf("xz.NewReader: %v", err)
	}
	got, err := io.ReadAll(xr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(got) != payload {
		t.Errorf("round trip = %q; want %q", got, payload)
	}
}

func TestBuildLogMirrorsStdout(t *testing.T) {
	// stdout is what the CI log collector captures, so the mirror must
	// be active regardless of the verbose toggle.
	oldVerbose := Verbose
	Verbose = false
	defer func() { Verbose = oldVerbose }()

	rd, wr, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	oldStdout := os.Stdout
	os.Stdout = wr
	defer func() { os.Stdout = oldStdout }()

	log, err := newBuildLog(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatalf("newBuildLog: %v", err)
	}

	const payload = "child output\n"
	if _, err := io.WriteString(log.Writer(), payload); err != nil {
		t.Fatal(err)
	}
	wr.Close()
	os.Stdout = oldStdout

	got, err := io.ReadAll(rd)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Errorf("stdout mirror = %q; want %q", got, payload)
	}

	onDisk, err := os.ReadFile(log.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(onDisk) != payload {
		t.Errorf("log file = %q; want %q", onDisk, payload)
	}
}

func TestHashString(t *testing.T) {
	a := hashString("node1/linux-x86-64/1234")
	b := hashString("node1/linux-x86-64/1235")
	if a == b {
		t.Error("distinct inputs hash equal")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d; want 16 hex chars", len(a))
	}
	if a != hashString("node1/linux-x86-64/1234") {
		t.Error("hash is not deterministic")
	}
}
