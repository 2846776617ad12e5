package driver

import (
	"fmt"
	"strconv"
	"strings"
)

const maxThreads = 64

// Options is the fully-parsed command line, independent of the teris-io/cli
// glue in command.go that produces it. Kept separate so the pipeline in
// pipeline.go can be driven directly from tests without going through the
// CLI layer, the way the teacher separates util.Options from util.ParseArgs.
type Options struct {
	Inputs     []string
	Out        string
	OptLevel   int
	Debug      bool
	Links      map[string]string // -l name@version pins.
	SaveTemps  bool
	Verbose    bool
	DumpTokens bool
	DumpAST    bool
	DumpIR     bool
	Werror     bool
	Run        bool
	Threads    int
}

// optionsFromCLI adapts the teris-io/cli action signature (positional args
// plus a flat option map) into an Options, applying the same defaulting and
// validation the teacher's hand-rolled util.ParseArgs does for -t.
func optionsFromCLI(args []string, flags map[string]string) (Options, error) {
	if len(args) == 0 {
		return Options{}, fmt.Errorf("no source files given")
	}
	opt := Options{
		Inputs:  args,
		Threads: 1,
		Links:   map[string]string{},
	}
	if v, ok := flags["output"]; ok {
		opt.Out = v
	}
	if v, ok := flags["opt-level"]; ok {
		lvl, err := strconv.Atoi(v)
		if err != nil || lvl < 0 || lvl > 3 {
			return opt, fmt.Errorf("opt-level must be an integer in [0, 3], got %q", v)
		}
		opt.OptLevel = lvl
	}
	if _, ok := flags["debug"]; ok {
		opt.Debug = true
	}
	if v, ok := flags["link"]; ok && v != "" {
		for _, pin := range strings.Split(v, ",") {
			name, version, found := strings.Cut(pin, "@")
			if !found {
				return opt, fmt.Errorf("-l expects name@version, got %q", pin)
			}
			opt.Links[name] = version
		}
	}
	if _, ok := flags["save-temps"]; ok {
		opt.SaveTemps = true
	}
	if _, ok := flags["verbose"]; ok {
		opt.Verbose = true
	}
	if _, ok := flags["dump-tokens"]; ok {
		opt.DumpTokens = true
	}
	if _, ok := flags["dump-ast"]; ok {
		opt.DumpAST = true
	}
	if _, ok := flags["dump-ir"]; ok {
		opt.DumpIR = true
	}
	if _, ok := flags["werror"]; ok {
		opt.Werror = true
	}
	if _, ok := flags["run"]; ok {
		opt.Run = true
	}
	if v, ok := flags["threads"]; ok {
		t, err := strconv.Atoi(v)
		if err != nil || t < 1 || t > maxThreads {
			return opt, fmt.Errorf("threads must be an integer in [1, %d], got %q", maxThreads, v)
		}
		opt.Threads = t
	}
	return opt, nil
}
