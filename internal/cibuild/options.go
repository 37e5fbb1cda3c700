package cibuild

import (
	"strings"
)

// BuildOptions accumulates the command-line state: configure flags are
// append-only in order of appearance, job count and the two toggles are
// last-write-wins.
type BuildOptions struct {
	ConfigureFlags []string
	Jobs           int // 0 when no -jN was given
	Native         bool
	Bootstrap      bool
}

// parseArgs folds over the argument tokens left to right. -patch1 is an
// immediate side effect: the patch is applied through the executor as
// soon as the token is consumed, before any later token is looked at,
// and a patch that fails to apply aborts the run. Any token that is not
// one of the known flags is a usage error.
func parseArgs(tokens []string, exec CommandRunner, workDir string) (*BuildOptions, error) {
	opts := &BuildOptions{Native: true}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "-conf":
			if i+1 >= len(tokens) {
				return nil, usageErrorf("-conf requires a value")
			}
			i++
			opts.ConfigureFlags = append(opts.ConfigureFlags, tokens[i])

		case tok == "-patch1":
			if i+1 >= len(tokens) {
				return nil, usageErrorf("-patch1 requires a path")
			}
			i++
			if err := applyPatch(exec, workDir, tokens[i]); err != nil {
				return nil, err
			}

		case tok == "-no-native":
			opts.Native = false

		case tok == "-v":
			Verbose = true

		case tok == "-with-bootstrap":
			opts.Bootstrap = true

		case strings.HasPrefix(tok, "-j"):
			n, ok := jobCount(tok[2:])
			if !ok {
				return nil, usageErrorf("unknown option %q", tok)
			}
			opts.Jobs = n

		default:
			return nil, usageErrorf("unknown option %q", tok)
		}
	}

	return opts, nil
}
