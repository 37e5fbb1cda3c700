package cibuild

import (
	"fmt"
	"sort"
)

// PlatformProfile describes everything the pipeline needs to know about
// one CI platform: which triples to hand to configure, which make to
// invoke, extra environment, and whether the native dependency check
// applies. The table below is the only per-platform branching in the
// tool; everything downstream reads the selected profile.
type PlatformProfile struct {
	Name        string
	BuildTriple string   // --build value, empty lets configure guess
	HostTriple  string   // --host value, empty lets configure guess
	Prefix      string   // scratch install prefix base, pid gets appended
	Make        string   // make program: "make" or "gmake"
	Env         []string // extra KEY=VAL entries for every child process
	CheckDepend bool     // run the dependency-completeness target after a native build
	Native      bool     // platform supports the machine-code backend at all
}

var platforms = map[string]PlatformProfile{
	"linux-x86-64": {
		Name:        "linux-x86-64",
		BuildTriple: "x86_64-pc-linux-gnu",
		HostTriple:  "x86_64-pc-linux-gnu",
		Prefix:      "/tmp/cibuild-install",
		Make:        "make",
		CheckDepend: true,
		Native:      true,
	},
	"linux-i386": {
		Name:        "linux-i386",
		BuildTriple: "i386-pc-linux-gnu",
		HostTriple:  "i386-pc-linux-gnu",
		Prefix:      "/tmp/cibuild-install",
		Make:        "make",
		Env:         []string{"CC=gcc -m32", "AS=as --32", "ASPP=gcc -m32 -c"},
		CheckDepend: true,
		Native:      true,
	},
	"linux-arm64": {
		Name:        "linux-arm64",
		BuildTriple: "aarch64-unknown-linux-gnu",
		HostTriple:  "aarch64-unknown-linux-gnu",
		Prefix:      "/tmp/cibuild-install",
		Make:        "make",
		CheckDepend: true,
		Native:      true,
	},
	"linux-riscv64": {
		Name:        "linux-riscv64",
		BuildTriple: "riscv64-unknown-linux-gnu",
		HostTriple:  "riscv64-unknown-linux-gnu",
		Prefix:      "/tmp/cibuild-install",
		Make:        "make",
		Native:      false,
	},
	"macos": {
		Name:   "macos",
		Prefix: "/tmp/cibuild-install",
		Make:   "make",
		Native: true,
	},
	"freebsd": {
		Name:   "freebsd",
		Prefix: "/tmp/cibuild-install",
		Make:   "gmake",
		Native: true,
	},
	"openbsd": {
		Name:   "openbsd",
		Prefix: "/tmp/cibuild-install",
		Make:   "gmake",
		Env:    []string{"MAKE=gmake"},
		Native: true,
	},
	"netbsd": {
		Name:   "netbsd",
		Prefix: "/tmp/cibuild-install",
		Make:   "gmake",
		Env:    []string{"MAKE=gmake"},
		Native: true,
	},
	"solaris": {
		Name:   "solaris",
		Prefix: "/var/tmp/cibuild-install",
		Make:   "gmake",
		Env:    []string{"MAKE=gmake", "PATH=/usr/gnu/bin:/usr/bin:/usr/sbin"},
		Native: false,
	},
	"cygwin64": {
		Name:        "cygwin64",
		BuildTriple: "x86_64-pc-cygwin",
		HostTriple:  "x86_64-pc-cygwin",
		Prefix:      "/tmp/cibuild-install",
		Make:        "make",
		Native:      true,
	},
}

// ResolvePlatform looks up the profile for an architecture name. The
// name comes from CIBUILD_ARCH set by the CI node configuration; an
// unknown name is a node misconfiguration, not a transient fault, so
// the error carries a pointer to the platform registration wiki.
func ResolvePlatform(name string) (PlatformProfile, error) {
	if name == "" {
		return PlatformProfile{}, usageErrorf(
			"CIBUILD_ARCH is not set; known platforms: %s", knownPlatforms())
	}
	p, ok := platforms[name]
	if !ok {
		return PlatformProfile{}, usageErrorf(
			"unknown architecture %q, see "+archWikiURL, name, name)
	}
	return p, nil
}

func knownPlatforms() string {
	names := make([]string, 0, len(platforms))
	for n := range platforms {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}
