package cibuild

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Config holds the raw key=value pairs from the config file plus any
// CIBUILD_* environment overrides.
type Config struct {
	Values map[string]string
}

// loadConfig reads an optional key=value config file and applies defaults.
// A missing file is not an error: every key has a working default and CI
// nodes usually run without one.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// A scan error is reported to the caller, but the env overrides and
	// defaults below still apply so the run keeps a usable config.
	var readErr error
	file, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		readErr = scanner.Err()
		file.Close()
	}

	mergeEnvOverrides(cfg)

	if tmp := cfg.Values["TMPDIR"]; tmp == "" {
		cfg.Values["TMPDIR"] = "/tmp"
	}

	return cfg, readErr
}

// mergeEnvOverrides folds CIBUILD_* environment variables over the file
// values; the environment always wins.
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "CIBUILD_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// BuildConfig is the immutable per-run configuration: platform profile,
// parsed options and environment, resolved once in Main before the
// pipeline starts. Nothing mutates it afterwards.
type BuildConfig struct {
	Profile   PlatformProfile
	Node      string // CI node name (NODE_NAME), informational
	Workspace string // toolchain checkout the pipeline runs in
	TestDir   string // test suite directory relative to Workspace
	Scratch   string // pid-suffixed scratch install prefix

	Jobs      int  // parallel job count, 0 when unset
	Native    bool // build the machine-code compiler
	Bootstrap bool // two-stage self-compile verification

	ConfigureFlags []string // accumulated -conf values, order preserved
	ExtraConfigure []string // CIBUILD_CONFIGURE_OPTIONS, whitespace-split

	// TestTarget selects the test suite variant; the literal value
	// "testnat" requests the native-compiler tests and combined with a
	// bytecode-only configure result turns the whole run into a skip.
	TestTarget string

	Values map[string]string // raw config values (log upload credentials)
}

// jobCount validates a job count string: one or two digits, 1 to 99.
func jobCount(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 99 {
		return 0, false
	}
	return n, true
}
