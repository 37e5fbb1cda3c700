package cibuild

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// nativeTestTarget is the CIBUILD_TEST_TARGET value that requests the
// machine-code compiler test variant. When the configure step reports a
// bytecode-only toolchain and this variant was asked for, the whole run
// is a deliberate skip, not a failure.
const nativeTestTarget = "testnat"

// Runner executes the build pipeline: clean, configure, build, install,
// test, restore. Steps run strictly in order and the first nonzero exit
// from a build tool aborts the run. The two func fields exist so tests
// can drive the sequencing with a fake executor and a canned configure
// result.
type Runner struct {
	Config *BuildConfig
	Exec   CommandRunner

	// Dep injection for testing
	DetectNative func(workDir string) (bool, error)
	LookPath     func(file string) (string, error)
}

func NewRunner(cfg *BuildConfig, execCtx CommandRunner) *Runner {
	return &Runner{
		Config:       cfg,
		Exec:         execCtx,
		DetectNative: detectNativeSupport,
		LookPath:     exec.LookPath,
	}
}

// command builds an exec.Cmd rooted in the workspace with the profile's
// extra environment applied.
func (r *Runner) command(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.Dir = r.Config.Workspace
	if len(r.Config.Profile.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Config.Profile.Env...)
	}
	return cmd
}

// make builds an invocation of the profile's make program with the job
// count applied.
func (r *Runner) make(target string) *exec.Cmd {
	var args []string
	if r.Config.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(r.Config.Jobs))
	}
	args = append(args, target)
	return r.command(r.Config.Profile.Make, args...)
}

func (r *Runner) runStep(cmd *exec.Cmd) error {
	if Verbose {
		colNote.Printf("+ %s\n", strings.Join(cmd.Args, " "))
	}
	return r.Exec.Run(cmd)
}

func (r *Runner) banner(format string, a ...any) {
	colArrow.Print("-> ")
	colSuccess.Printf(format+"\n", a...)
}

// Run executes the whole pipeline. A nil return means success or a
// deliberate skip; any error carries the first failing step.
func (r *Runner) Run() error {
	cfg := r.Config

	// Clean workspace: drop untracked and ignored files so every run
	// starts from the committed tree.
	r.banner("Cleaning workspace")
	if err := r.runStep(r.command("git", "clean", "-d", "-f", "-x")); err != nil {
		return fmt.Errorf("workspace clean failed: %w", err)
	}

	r.banner("Configuring for %s (prefix %s)", cfg.Profile.Name, cfg.Scratch)
	if err := r.runStep(r.configureCommand()); err != nil {
		return fmt.Errorf("configure failed: %w", err)
	}

	nativeSupported, err := r.DetectNative(cfg.Workspace)
	if err != nil {
		return err
	}
	if !nativeSupported && cfg.TestTarget == nativeTestTarget {
		// Bytecode-only configuration but the native test variant was
		// requested: nothing useful to build or test on this node.
		r.banner("No native code support and %s requested; skipping run", nativeTestTarget)
		return nil
	}

	native := cfg.Native && cfg.Profile.Native && nativeSupported

	if cfg.Bootstrap {
		r.banner("Building core compiler")
		if err := r.runStep(r.make("core")); err != nil {
			return fmt.Errorf("core build failed: %w", err)
		}
		r.banner("Bootstrapping")
		if err := r.runStep(r.make("bootstrap")); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
		if native {
			r.banner("Building native self-hosted compiler")
			if err := r.runStep(r.make("opt.opt")); err != nil {
				return fmt.Errorf("opt.opt build failed: %w", err)
			}
		}
	} else {
		r.banner("Building")
		if err := r.runStep(r.make("world")); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		if native {
			r.banner("Building native compiler")
			if err := r.runStep(r.make("opt")); err != nil {
				return fmt.Errorf("native build failed: %w", err)
			}
		}
	}

	if native && cfg.Profile.CheckDepend {
		r.banner("Checking dependency completeness")
		if err := r.runStep(r.make("alldepend")); err != nil {
			return fmt.Errorf("dependency check failed: %w", err)
		}
	}

	r.banner("Installing to %s", cfg.Scratch)
	if err := r.runStep(r.make("install")); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	// The scratch tree exists only to prove install works; drop it
	// before the test suite needs the disk. Best-effort.
	removeScratch(cfg.Scratch)

	if err := r.runTests(); err != nil {
		return err
	}

	if cfg.Bootstrap {
		// The bootstrap cycle rewrites the checked-in boot binaries;
		// put the workspace back the way version control has them.
		r.banner("Restoring boot files")
		if err := r.runStep(r.command("git", "checkout", "--", "boot/compiler", "boot/lexer")); err != nil {
			return fmt.Errorf("boot file restore failed: %w", err)
		}
	}

	r.banner("Run completed")
	return nil
}

// configureCommand assembles the configure invocation: platform triples,
// scratch prefix, node-level extra options, then the -conf flags in the
// order they appeared. Arguments are discrete argv entries; nothing
// passes through a shell, so embedded quotes survive as-is.
func (r *Runner) configureCommand() *exec.Cmd {
	cfg := r.Config
	var args []string
	if cfg.Profile.BuildTriple != "" {
		args = append(args, "--build="+cfg.Profile.BuildTriple)
	}
	if cfg.Profile.HostTriple != "" {
		args = append(args, "--host="+cfg.Profile.HostTriple)
	}
	args = append(args, "--prefix="+cfg.Scratch)
	args = append(args, cfg.ExtraConfigure...)
	args = append(args, cfg.ConfigureFlags...)
	return r.command("./configure", args...)
}

// detectNativeSupport reads the configure-generated Makefile.config and
// reports whether the toolchain was configured with the machine-code
// backend. NATIVE_COMPILER=false means bytecode-only.
func detectNativeSupport(workDir string) (bool, error) {
	path := filepath.Join(workDir, "Makefile.config")
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("reading generated configuration: %w", err)
	}
	defer f.Close()

	native := true
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.TrimSpace(parts[0]) == "NATIVE_COMPILER" {
			native = strings.TrimSpace(parts[1]) != "false"
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("reading generated configuration: %w", err)
	}
	return native, nil
}

// printEnvironment dumps host and compiler version info at the top of
// the CI log. Informational only: a node without cc on PATH still gets
// a build attempt.
func printEnvironment(execCtx CommandRunner, workDir string) {
	colNote.Println("Build environment:")
	for _, probe := range [][]string{
		{"uname", "-a"},
		{"cc", "--version"},
		{"git", "log", "-1", "--format=commit %h %s"},
	} {
		cmd := exec.Command(probe[0], probe[1:]...)
		cmd.Dir = workDir
		if err := execCtx.Run(cmd); err != nil {
			debugf("environment probe %s failed: %v\n", probe[0], err)
		}
	}
}
