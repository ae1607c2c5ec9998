// unacpp is the command-line front end for the Unarian interpreter: it
// wires the lexer, parser, optimizer, bytecode compiler, and VM together
// behind a small flag-based interface.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/unacpp/pkg/bytecode"
	"github.com/chazu/unacpp/pkg/config"
	"github.com/chazu/unacpp/pkg/numeric"
	"github.com/chazu/unacpp/pkg/numeric/bignum"
	"github.com/chazu/unacpp/pkg/numeric/fixnum"
	"github.com/chazu/unacpp/pkg/optimizer"
	"github.com/chazu/unacpp/pkg/parser"
	"github.com/chazu/unacpp/pkg/trace"
)

const (
	exitOK            = 0
	exitFileOpen      = 1
	exitFileParseErr  = 2
	exitExprParseErr  = 3
	exitConfigLoadErr = 4
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds the resolved value of every flag after config-file
// defaults have been merged in under any explicit command-line flags.
type options struct {
	expr       string
	input      bool
	debug      bool
	fixed      bool
	bytecode   bool
	configPath string
	tracePath  string
	file       string
}

func runCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, explicit, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitExprParseErr
	}

	if opts.configPath != "" {
		file, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "unacpp: %v\n", err)
			return exitConfigLoadErr
		}
		applyConfig(&opts, file, explicit)
	}

	numbers := numberFactory(opts.fixed)

	var traceSink *trace.Sink
	if opts.tracePath != "" {
		traceFile, err := os.Create(opts.tracePath)
		if err != nil {
			fmt.Fprintf(stderr, "unacpp: opening trace file: %v\n", err)
			return exitFileOpen
		}
		defer traceFile.Close()
		traceSink = trace.NewSink(traceFile)
	}

	source, err := readSource(opts.file)
	if err != nil {
		fmt.Fprintf(stderr, "unacpp: %v\n", err)
		return exitFileOpen
	}

	programs, errs := parser.ParseFile(source, numbers, opts.debug)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(stderr, "unacpp: %s\n", e.String())
		}
		return exitFileParseErr
	}

	entry, errs := parser.ParseExpression(opts.expr, programs, numbers)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(stderr, "unacpp: %s\n", e.String())
		}
		return exitExprParseErr
	}

	optimized := optimizer.Optimize(programs, entry, numbers)

	module, err := bytecode.Compile(optimized, entry, numbers)
	if err != nil {
		fmt.Fprintf(stderr, "unacpp: %v\n", err)
		return exitExprParseErr
	}

	if opts.bytecode {
		fmt.Fprint(stdout, module.Disassemble())
		return exitOK
	}

	var tracer bytecode.Tracer
	if traceSink != nil {
		tracer = traceSink
	}

	if opts.input {
		return runBatch(stdin, stdout, stderr, module, numbers, tracer)
	}

	val, ok := bytecode.Run(module, numbers.Zero(), numbers, tracer)
	fmt.Fprintln(stdout, formatResult(val, ok))
	return exitOK
}

// runBatch reads one initial counter per line from stdin until EOF,
// running module against each and writing one output line per input.
func runBatch(stdin io.Reader, stdout, stderr io.Writer, module *bytecode.Module, numbers numeric.Factory, tracer bytecode.Tracer) int {
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		initial, err := numbers.Parse(line)
		if err != nil {
			fmt.Fprintf(stderr, "unacpp: invalid input line %q: %v\n", line, err)
			return exitFileParseErr
		}
		val, ok := bytecode.Run(module, initial, numbers, tracer)
		fmt.Fprintln(stdout, formatResult(val, ok))
	}
	return exitOK
}

func formatResult(val numeric.Value, ok bool) string {
	if !ok {
		return "-"
	}
	return val.String()
}

func numberFactory(fixed bool) numeric.Factory {
	if fixed {
		return fixnum.NewFactory()
	}
	return bignum.NewFactory()
}

// readSource reads the program text from the named file. With no file
// argument the source is empty (just the "+"/"-"/"!" primitives), which
// leaves stdin free for -i/--input's batch-mode initial counters.
func readSource(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	return string(data), nil
}

// parseFlags registers both short and long spellings of every flag
// against the same variable and returns the resolved options plus the
// set of flag names the caller passed explicitly (needed to honour the
// built-in-default < config-file < explicit-flag precedence rule).
func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	fs := flag.NewFlagSet("unacpp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.expr, "e", "main", "entry expression")
	fs.StringVar(&opts.expr, "expr", "main", "entry expression")
	fs.BoolVar(&opts.input, "i", false, "read initial counters from stdin, one integer per line")
	fs.BoolVar(&opts.input, "input", false, "read initial counters from stdin, one integer per line")
	fs.BoolVar(&opts.debug, "g", false, "enable ! (DebugPrint) emission")
	fs.BoolVar(&opts.debug, "debug", false, "enable ! (DebugPrint) emission")
	fs.BoolVar(&opts.fixed, "f", false, "use 64-bit arithmetic instead of arbitrary-precision")
	fs.BoolVar(&opts.fixed, "fixed", false, "use 64-bit arithmetic instead of arbitrary-precision")
	fs.BoolVar(&opts.bytecode, "b", false, "dump bytecode disassembly and exit")
	fs.BoolVar(&opts.bytecode, "bytecode", false, "dump bytecode disassembly and exit")
	fs.StringVar(&opts.configPath, "c", "", "load defaults for the flags above from a TOML file")
	fs.StringVar(&opts.configPath, "config", "", "load defaults for the flags above from a TOML file")
	fs.StringVar(&opts.tracePath, "t", "", "write a CBOR-encoded per-opcode execution trace to FILE")
	fs.StringVar(&opts.tracePath, "trace", "", "write a CBOR-encoded per-opcode execution trace to FILE")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: unacpp [file]\n")
		fmt.Fprintf(stderr, "       [-e|--expr EXPR]      entry expression (default: \"main\")\n")
		fmt.Fprintf(stderr, "       [-i|--input]          read initial counters from stdin, one integer per line\n")
		fmt.Fprintf(stderr, "       [-g|--debug]          enable ! (DebugPrint) emission; otherwise ! is a no-op\n")
		fmt.Fprintf(stderr, "       [-f|--fixed]          use 64-bit arithmetic instead of arbitrary-precision\n")
		fmt.Fprintf(stderr, "       [-b|--bytecode]       dump bytecode disassembly and exit\n")
		fmt.Fprintf(stderr, "       [-c|--config FILE]    load defaults for the flags above from a TOML file\n")
		fmt.Fprintf(stderr, "       [-t|--trace FILE]     write a CBOR-encoded per-opcode execution trace to FILE\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[canonicalFlagName(f.Name)] = true
	})

	if rest := fs.Args(); len(rest) > 0 {
		opts.file = rest[0]
	}

	return opts, explicit, nil
}

func canonicalFlagName(name string) string {
	switch name {
	case "e", "expr":
		return "expr"
	case "i", "input":
		return "input"
	case "g", "debug":
		return "debug"
	case "f", "fixed":
		return "fixed"
	case "b", "bytecode":
		return "bytecode"
	case "c", "config":
		return "config"
	case "t", "trace":
		return "trace"
	default:
		return name
	}
}

// applyConfig overlays config-file values onto opts for every key the
// file actually set and the command line did not — the middle tier of
// built-in default < config file value < explicit command-line flag.
func applyConfig(opts *options, file *config.File, explicit map[string]bool) {
	if file.Set["expr"] && !explicit["expr"] {
		opts.expr = file.Expr
	}
	if file.Set["input"] && !explicit["input"] {
		opts.input = file.Input
	}
	if file.Set["debug"] && !explicit["debug"] {
		opts.debug = file.Debug
	}
	if file.Set["fixed"] && !explicit["fixed"] {
		opts.fixed = file.Fixed
	}
	if file.Set["bytecode"] && !explicit["bytecode"] {
		opts.bytecode = file.Bytecode
	}
	if file.Set["trace"] && !explicit["trace"] {
		opts.tracePath = file.Trace
	}
}
