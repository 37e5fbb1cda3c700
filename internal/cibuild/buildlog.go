package cibuild

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
	"lukechampine.com/blake3"
)

// BuildLog captures the full child-process output of one run. Output is
// mirrored to stdout for the CI log collector and teed to a plain-text
// file, which is compressed on completion for archiving.
type BuildLog struct {
	Path string // plain-text log file
	file *os.File
}

func newBuildLog(dir string) (*BuildLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	path := filepath.Join(dir, "build-log.txt")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return &BuildLog{Path: path, file: f}, nil
}

// Writer returns the destination for child output: stdout for the CI
// collector plus the log file for archiving.
func (l *BuildLog) Writer() io.Writer {
	return io.MultiWriter(os.Stdout, l.file)
}

// Compress closes the log and writes an xz-compressed copy alongside
// it, returning the compressed path.
func (l *BuildLog) Compress() (string, error) {
	l.file.Close()

	src, err := os.Open(l.Path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	xzPath := l.Path + ".xz"
	dest, err := os.Create(xzPath)
	if err != nil {
		return "", err
	}
	defer dest.Close()

	xzWriter, err := xz.NewWriter(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(xzWriter, src); err != nil {
		xzWriter.Close()
		return "", fmt.Errorf("failed to compress log: %w", err)
	}
	if err := xzWriter.Close(); err != nil {
		return "", err
	}
	return xzPath, nil
}

// hashString returns a short BLAKE3 digest of s, used to key uploaded
// log objects.
func hashString(s string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}
