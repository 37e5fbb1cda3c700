package cibuild

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// runTests runs the toolchain test suite from the test directory. The
// parallel target is used only when a job count above one was requested
// AND GNU parallel is installed on the node; the default target and any
// explicit CIBUILD_TEST_TARGET variant always run sequentially.
func (r *Runner) runTests() error {
	cfg := r.Config

	target := "all"
	if cfg.TestTarget != "" {
		target = cfg.TestTarget
	}

	if cfg.Jobs > 1 && target == "all" {
		if _, err := r.LookPath("parallel"); err == nil {
			r.banner("Running tests (%d jobs)", cfg.Jobs)
			cmd := r.testCommand("parallel", fmt.Sprintf("JOBS=%d", cfg.Jobs))
			if err := r.runStep(cmd); err != nil {
				return fmt.Errorf("tests failed: %w", err)
			}
			return nil
		}
		colNote.Println("GNU parallel not found, running tests sequentially")
	}

	r.banner("Running tests")
	if err := r.runStep(r.testCommand(target)); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	return nil
}

// testCommand builds a make invocation rooted in the test directory.
func (r *Runner) testCommand(args ...string) *exec.Cmd {
	cmd := exec.Command(r.Config.Profile.Make, args...)
	cmd.Dir = filepath.Join(r.Config.Workspace, r.Config.TestDir)
	if len(r.Config.Profile.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Config.Profile.Env...)
	}
	return cmd
}
