package cibuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

func printUsage() {
	colSuccess.Println("Usage: cibuild [options]")
	fmt.Println()
	color.Info.Println("Options:")
	fmt.Println("  -conf VALUE      append VALUE to the configure flags")
	fmt.Println("  -patch1 PATH     apply PATH now with patch -p1 (fatal if it does not apply)")
	fmt.Println("  -no-native       disable the machine-code build")
	fmt.Println("  -jN              job count, 1-99")
	fmt.Println("  -with-bootstrap  run the two-stage self-compile verification")
	fmt.Println("  -v               echo each command before running it")
	fmt.Println("  -version         print version information")
	fmt.Println()
	color.Info.Println("Environment:")
	fmt.Println("  CIBUILD_ARCH               platform name (required)")
	fmt.Println("  CIBUILD_CONFIGURE_OPTIONS  extra configure options")
	fmt.Println("  CIBUILD_JOBS               default job count")
	fmt.Println("  CIBUILD_TEST_TARGET        test suite variant (e.g. testnat)")
	fmt.Println("  NODE_NAME                  CI node identifier")
}

// Main is the CLI entrypoint for cibuild.
func Main() {
	// Create the main application context and the function to cancel it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// First signal cancels the run gracefully so child process groups
	// get killed and the log gets flushed; a second one forces exit.
	go func() {
		for {
			select {
			case sig := <-sigs:
				colArrow.Print("\n-> ")
				color.Danger.Printf("Received %v. Cancelling run gracefully\n", sig)
				cancel()
				time.Sleep(100 * time.Millisecond)
				select {
				case <-sigs:
					colArrow.Print("\n-> ")
					color.Danger.Printf("Second interrupt received. Forcing immediate exit.\n")
					os.Exit(130)
				case <-time.After(2 * time.Second):
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	// -version and -help win regardless of position among other flags.
	for _, a := range args {
		switch a {
		case "-version", "--version":
			colNote.Printf("cibuild %s (%s) built %s\n", version, arch, buildDate)
			return 0
		case "-h", "-help", "--help":
			printUsage()
			return 0
		}
	}

	cfg, err := loadConfig(ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: reading %s: %v\n", ConfigFile, err)
	}
	if cfg.Values["CIBUILD_DEBUG"] == "1" {
		Debug = true
	}

	profile, err := ResolvePlatform(cfg.Values["CIBUILD_ARCH"])
	if err != nil {
		return fail(err)
	}

	workspace, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine workspace: %v\n", err)
		return 1
	}

	release, err := lockWorkspace(workspace)
	if err != nil {
		return fail(err)
	}
	defer release()

	logDir := filepath.Join(cfg.Values["TMPDIR"], fmt.Sprintf("cibuild-%d", os.Getpid()))
	buildLog, err := newBuildLog(logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	execCtx := NewExecutor(ctx)
	execCtx.Output = buildLog.Writer()

	node := os.Getenv("NODE_NAME")
	if node == "" {
		node, _ = os.Hostname()
	}
	colArrow.Print("-> ")
	colSuccess.Printf("cibuild %s on %s (%s)\n", version, node, profile.Name)
	printEnvironment(execCtx, workspace)

	opts, err := parseArgs(args, execCtx, workspace)
	if err != nil {
		return fail(err)
	}

	jobs := opts.Jobs
	if jobs == 0 {
		if j := cfg.Values["CIBUILD_JOBS"]; j != "" {
			n, ok := jobCount(j)
			if !ok {
				return fail(usageErrorf("invalid CIBUILD_JOBS value %q", j))
			}
			jobs = n
		}
	}

	bc := &BuildConfig{
		Profile:        profile,
		Node:           node,
		Workspace:      workspace,
		TestDir:        "testsuite",
		Scratch:        scratchPrefix(profile),
		Jobs:           jobs,
		Native:         opts.Native,
		Bootstrap:      opts.Bootstrap,
		ConfigureFlags: opts.ConfigureFlags,
		ExtraConfigure: strings.Fields(cfg.Values["CIBUILD_CONFIGURE_OPTIONS"]),
		TestTarget:     cfg.Values["CIBUILD_TEST_TARGET"],
		Values:         cfg.Values,
	}

	runner := NewRunner(bc, execCtx)
	runErr := runner.Run()

	// Archive the log whether the run passed or failed; failure logs
	// are the ones people actually read.
	if xzPath, err := buildLog.Compress(); err != nil {
		colWarn.Printf("Warning: failed to compress build log: %v\n", err)
	} else {
		uploadBuildLog(ctx, cfg, node, profile.Name, xzPath)
	}

	if runErr != nil {
		return fail(runErr)
	}
	return 0
}

// fail prints the error and maps it to the process exit code: usage
// errors are always 3, a failing build tool propagates its own exit
// code, anything else is 1.
func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var usage *UsageError
	if errors.As(err, &usage) {
		return 3
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		if code := exit.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
