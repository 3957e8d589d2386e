package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"cellar/internal/backend"
	"cellar/internal/config"
	"cellar/internal/logging"
	"cellar/internal/store"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// env carries what every subcommand needs.
type env struct {
	cfg   *config.Config
	st    store.Store
	in    io.Reader
	out   io.Writer
	errw  io.Writer
	isTTY func() bool
}

type command struct {
	usage string
	help  string
	run   func(e *env, args []string) error
}

var commands = map[string]command{
	"get":     {"get <category> <key>", "print the value stored under key", runGet},
	"put":     {"put <category> <key> <value>", "store a value", runPut},
	"del":     {"del <category> <key>", "remove a key", runDel},
	"scan":    {"scan <category> [--limit n] [--hex]", "list entries in key order", runScan},
	"stats":   {"stats", "entry counts and content digests per category", runStats},
	"drop":    {"drop <category> --yes", "discard every entry of a category", runDrop},
	"restore": {"restore <new-path> [--yes]", "replace the dataset with the store at new-path", runRestore},
}

var commandOrder = []string{"get", "put", "del", "scan", "stats", "drop", "restore"}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errw io.Writer) int {
	fs := flag.NewFlagSet("cellar", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(errw)
	configPath := fs.String("config", "", "path to config file (TOML or YAML)")
	path := fs.String("path", "", "store directory (overrides config)")
	backendName := fs.String("backend", "", "bolt or memory (overrides config)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	fs.Usage = func() { usage(errw, fs) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		usage(errw, fs)
		return exitUsage
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(errw, "Error: unknown command %q\n", name)
		usage(errw, fs)
		return exitUsage
	}

	// Load config (TOML/YAML file with defaults)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(errw, "Error: %v\n", err)
		return exitError
	}

	// CLI flags override config file values
	if *path != "" {
		cfg.Store.Path = *path
	}
	if *backendName != "" {
		cfg.Store.Backend = *backendName
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := logging.InitWriter(errw, cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(errw, "Error: %v\n", err)
		return exitError
	}

	st, err := backend.Open(cfg.Store)
	if err != nil {
		fmt.Fprintf(errw, "Error: opening store: %v\n", err)
		return exitError
	}
	defer st.Close()

	e := &env{cfg: cfg, st: st, in: in, out: out, errw: errw, isTTY: func() bool { return isTerminal(in) }}
	if err := cmd.run(e, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(errw, "Usage: cellar %s\n", cmd.usage)
			return exitUsage
		}
		fmt.Fprintf(errw, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: cellar [options] <command> [args]\n\nCommands:\n")
	for _, name := range commandOrder {
		c := commands[name]
		fmt.Fprintf(w, "  %-36s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(w, "\nCategories: default")
	for _, c := range store.Categories() {
		fmt.Fprintf(w, ", %s", c)
	}
	fmt.Fprintf(w, "\n\nOptions:\n")
	fs.PrintDefaults()
}
