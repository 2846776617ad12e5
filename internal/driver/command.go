package driver

import (
	"fmt"
	"os"

	"github.com/teris-io/cli"
)

// description is shown by `quadratec --help`, grounded on the builder
// pattern the pack uses for its own compiler CLI
// (its-hmny-nand2tetris/code/cmd/jack_compiler/main.go), in place of the
// teacher's hand-rolled src/util/args.go.
const description = "Compiles Quadrate (.qd) source into a native executable, linking the bundled stack runtime."

// Command is the quadratec CLI surface.
var Command = cli.New(description).
	WithArg(cli.NewArg("inputs", "source file(s); the first is the program's main entry").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "write the executable to this path (default: ./a.out)").
		WithChar('o').WithType(cli.TypeString)).
	WithOption(cli.NewOption("opt-level", "optimisation level, 0-3 (default: 0)").
		WithChar('O').WithType(cli.TypeString)).
	WithOption(cli.NewOption("debug", "embed debug info in the generated IR").
		WithChar('g').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("link", "pin package version(s): name@version[,name@version...]").
		WithChar('l').WithType(cli.TypeString)).
	WithOption(cli.NewOption("save-temps", "keep the temporary build directory instead of removing it").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("verbose", "print the path of the written executable").
		WithChar('v').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("dump-tokens", "print the token stream of the main source and exit").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("dump-ast", "print the parsed syntax tree of every module and exit").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("dump-ir", "print the generated LLVM IR before linking").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("werror", "treat warnings as errors").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("run", "execute the linked binary and forward its exit code").
		WithChar('r').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("threads", "worker count for resolution and validation (default: 1)").
		WithChar('t').WithType(cli.TypeString)).
	WithAction(handle)

func handle(args []string, flags map[string]string) int {
	opt, err := optionsFromCLI(args, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quadratec: %v\n", err)
		return 1
	}
	return Run(opt)
}

// Main runs the quadratec command against the process's own argv, the same
// split the teacher keeps between main.go's run(opt) and its main() wrapper.
func Main() int {
	return Command.Run(os.Args, os.Stdout)
}
