package cibuild

import (
	"fmt"
	"runtime"

	"github.com/gookit/color"
)

// Global variables
var (
	Verbose    bool
	Debug      bool
	ConfigFile = "/etc/cibuild.conf"
	version    = "dev" // overridden at build time
	arch       = runtime.GOARCH
	buildDate  = "unknown" // overridden at build time
)

// archWikiURL is printed when CIBUILD_ARCH names an unknown platform so
// the node owner knows where to register it.
const archWikiURL = "https://ci.example.org/wiki/platforms#%s"

// color helpers
var (
	colInfo    = color.Info
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)

// UsageError is a configuration or command-line mistake. It always maps
// to exit code 3, distinct from build tool failures which propagate the
// child's exit code.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usageErrorf(format string, a ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, a...)}
}

// debugf prints debug messages when Debug is true
func debugf(format string, args ...any) {
	if Debug {
		fmt.Printf(format, args...)
	}
}
