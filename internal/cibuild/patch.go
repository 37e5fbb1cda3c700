package cibuild

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// applyPatch applies a patch file to the workspace with one leading
// path component stripped. -f keeps patch from dropping into its
// interactive "apply anyway?" prompt on a CI node; a patch that does
// not apply cleanly fails the run.
func applyPatch(execCtx CommandRunner, workDir, patchPath string) error {
	abs, err := filepath.Abs(patchPath)
	if err != nil {
		return fmt.Errorf("resolving patch path %s: %w", patchPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("patch file %s: %w", patchPath, err)
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Applying patch %s\n", filepath.Base(patchPath))

	cmd := exec.Command("patch", "-f", "-p1", "-i", abs)
	cmd.Dir = workDir
	if err := execCtx.Run(cmd); err != nil {
		return fmt.Errorf("patch %s did not apply cleanly: %w", patchPath, err)
	}
	return nil
}
