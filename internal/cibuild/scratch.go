package cibuild

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// scratchPrefix builds the uniquely-named scratch install prefix for
// this run. The pid suffix keeps concurrent runs on a shared node from
// installing over each other.
func scratchPrefix(profile PlatformProfile) string {
	return fmt.Sprintf("%s-%d", profile.Prefix, os.Getpid())
}

// removeScratch deletes the scratch install tree. Removal is
// best-effort: a leftover tree wastes disk but must not turn a green
// build red, so failures are reported as warnings only.
func removeScratch(prefix string) {
	if err := os.RemoveAll(prefix); err != nil {
		colWarn.Printf("Warning: failed to remove scratch prefix %s: %v\n", prefix, err)
	}
}

// lockWorkspace takes an exclusive flock on a lock file inside the
// workspace so two driver runs cannot build the same checkout at once.
// The returned release function closes the descriptor, dropping the
// lock.
func lockWorkspace(workDir string) (func(), error) {
	lockPath := filepath.Join(workDir, ".cibuild.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening workspace lock: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("workspace %s is locked by another run: %w", workDir, err)
	}
	release := func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}
	return release, nil
}
