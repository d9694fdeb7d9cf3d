// SuperBasic CLI - compiles, runs, debugs and serves SuperBasic programs
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/superbasic/compiler"
	"github.com/chazu/superbasic/host"
	"github.com/chazu/superbasic/library"
	"github.com/chazu/superbasic/manifest"
	"github.com/chazu/superbasic/server"
	"github.com/chazu/superbasic/stdlib"
	"github.com/chazu/superbasic/vm"

	_ "github.com/tliron/commonlog/simple"
)

// options collects flag values after the manifest has been merged in.
type options struct {
	check     bool
	debug     bool
	step      bool
	breaks    string
	build     bool
	output    string
	fromImage bool
	disasm    bool
	lsp       bool
	desktop   bool
	events    string
	verbosity int
	logPath   string
}

func main() {
	var opts options
	flag.BoolVar(&opts.check, "check", false, "Compile only and report diagnostics")
	flag.BoolVar(&opts.debug, "debug", false, "Run with the debugger enabled")
	flag.BoolVar(&opts.step, "step", false, "Pause before every line (implies -debug)")
	flag.StringVar(&opts.breaks, "break", "", "Comma-separated 1-based lines to break on (implies -debug)")
	flag.StringVar(&opts.output, "o", "", "Write the compiled program image to this file instead of running it")
	flag.BoolVar(&opts.build, "build", false, "Write the compiled image to the manifest's [image] output")
	flag.BoolVar(&opts.fromImage, "image", false, "Treat the input file as a compiled program image")
	flag.BoolVar(&opts.disasm, "disasm", false, "Print the program's instructions")
	flag.BoolVar(&opts.lsp, "lsp", false, "Start the language server on stdio")
	flag.BoolVar(&opts.desktop, "desktop", false, "Allow library members that need the desktop runtime")
	flag.StringVar(&opts.events, "events", "", "Event re-entrancy policy: replace or stack")
	flag.IntVar(&opts.verbosity, "v", 0, "Log verbosity (0 = errors only)")
	flag.StringVar(&opts.logPath, "log", "", "Write logs to this file instead of stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sbasic [options] program.sb [program args...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a SuperBasic program in the terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  sbasic guess.sb               # Run a program\n")
		fmt.Fprintf(os.Stderr, "  sbasic -check guess.sb        # Report diagnostics only\n")
		fmt.Fprintf(os.Stderr, "  sbasic -step guess.sb         # Step through line by line\n")
		fmt.Fprintf(os.Stderr, "  sbasic -o guess.sbimg guess.sb  # Compile to an image\n")
		fmt.Fprintf(os.Stderr, "  sbasic -image guess.sbimg     # Run a compiled image\n")
		fmt.Fprintf(os.Stderr, "  sbasic -lsp                   # Language server for editors\n")
	}
	flag.Parse()

	paths := flag.Args()
	startDir := "."
	if len(paths) > 0 {
		startDir = filepath.Dir(paths[0])
	}
	m, err := manifest.FindAndLoad(startDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var programArgs []string
	if m != nil {
		mergeManifest(&opts, m)
		programArgs = m.Run.Args
		if len(paths) == 0 && m.EntryPath() != "" {
			paths = []string{m.EntryPath()}
		}
	}
	if len(paths) > 1 {
		programArgs = paths[1:]
	}

	logPath := &opts.logPath
	if opts.logPath == "" {
		logPath = nil
	}
	commonlog.Configure(opts.verbosity, logPath)

	registry := library.NewRegistry()

	if opts.lsp {
		if err := server.NewLSP(registry, opts.desktop).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if opts.build && opts.output == "" {
		fmt.Fprintf(os.Stderr, "Error: -build needs -o or an [image] output in %s\n", manifest.FileName)
		os.Exit(2)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	program, ok := loadProgram(paths[0], registry, opts)
	if !ok {
		os.Exit(1)
	}
	if opts.check {
		os.Exit(0)
	}
	if opts.disasm {
		fmt.Print(program.Disassemble())
		if opts.output == "" {
			os.Exit(0)
		}
	}
	if opts.output != "" {
		data, err := vm.MarshalProgram(program)
		if err == nil {
			err = os.WriteFile(opts.output, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write image: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(program, registry, programArgs, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// mergeManifest fills in every option that was not set on the command line.
func mergeManifest(opts *options, m *manifest.Manifest) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["debug"] {
		opts.debug = m.Run.Debug
	}
	if !set["step"] {
		opts.step = m.Run.Step
	}
	if !set["desktop"] {
		opts.desktop = m.Run.Desktop
	}
	if !set["events"] {
		opts.events = m.Run.Events
	}
	if !set["v"] {
		opts.verbosity = m.Log.Verbosity
	}
	if !set["log"] && m.Log.Path != "" {
		opts.logPath = filepath.Join(m.Dir, m.Log.Path)
	}
	if !set["o"] && opts.build {
		opts.output = m.ImagePath()
	}
}

// loadProgram compiles source or decodes an image, printing diagnostics.
func loadProgram(path string, registry *library.Registry, opts options) (*vm.Program, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, false
	}

	if opts.fromImage {
		program, err := vm.UnmarshalProgram(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			return nil, false
		}
		return program, true
	}

	comp := compiler.Compile(string(data), opts.desktop, registry)
	if comp.HasErrors() {
		for _, d := range comp.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", path, d.Range.Start.Line+1, d.Range.Start.Column+1, d.Message())
		}
		fmt.Fprintf(os.Stderr, "%d error(s)\n", len(comp.Diagnostics))
		return nil, false
	}
	return comp.Program(), true
}

func run(program *vm.Program, registry *library.Registry, args []string, opts options) error {
	policy, err := vm.ParseEventPolicy(opts.events)
	if err != nil {
		return err
	}
	breakLines, err := parseBreakpoints(opts.breaks)
	if err != nil {
		return err
	}
	debugging := opts.debug || opts.step || len(breakLines) > 0

	worker := host.NewWorker()
	defer worker.Stop()

	libs := stdlib.New(registry, stdlib.Config{
		Output:   os.Stdout,
		Args:     args,
		Dispatch: worker.Post,
	})
	defer libs.Close()

	engine := vm.NewEngine(program, libs, vm.Options{Debugging: debugging, EventPolicy: policy})
	for _, line := range breakLines {
		engine.SetBreakpoint(line)
	}
	if opts.step && len(program.Main.Instructions) > 0 {
		engine.SetBreakpoint(program.Main.Instructions[0].Range.Line)
	}
	worker.Attach(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return host.NewConsole(worker, libs, os.Stdin, os.Stderr).Run(ctx)
}

// parseBreakpoints turns "3,7" into zero-based lines.
func parseBreakpoints(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var lines []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid breakpoint line %q", part)
		}
		lines = append(lines, n-1)
	}
	return lines, nil
}
