// Package main is the entry point for confman, which lists and edits the
// settings of the host and its Lua plugins.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/confman/internal/app"
	"github.com/dshills/confman/internal/logging"
	"github.com/dshills/confman/internal/settings"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cliOptions are the flags that are not application options.
type cliOptions struct {
	showDebug    bool
	showAdvanced bool
	assignments  []string
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, cli := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure cleanup on all exit paths
	defer func() {
		if err := application.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		}
	}()

	if err := application.LoadPlugins(ctx); err != nil {
		// Failing plugins are skipped; the rest are still listed.
		application.Logger().WithError(err).Warn("some plugins failed to load")
	}

	for _, a := range cli.assignments {
		if err := application.Set(a); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	if application.Dirty() {
		if err := application.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	showDebug := cli.showDebug || application.ShowDebug()
	showAdvanced := cli.showAdvanced || application.ShowAdvanced()
	entries, withoutSettings := application.CollectSettings(showDebug)
	printSettings(os.Stdout, settings.GroupByPlugin(settings.Visible(entries, showAdvanced)), withoutSettings)

	if !opts.Watch {
		return 0
	}
	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() (app.Options, cliOptions) {
	var opts app.Options
	var cli cliOptions
	var pluginPaths, assignments stringList
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to the core configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to the core configuration file (shorthand)")
	flag.Var(&pluginPaths, "plugins", "Plugin search path (repeatable, overrides plugins.paths)")
	flag.BoolVar(&cli.showDebug, "debug", false, "Show debug settings such as per-frame toggles")
	flag.BoolVar(&cli.showDebug, "d", false, "Show debug settings (shorthand)")
	flag.BoolVar(&cli.showAdvanced, "advanced", false, "Show advanced settings")
	flag.BoolVar(&cli.showAdvanced, "a", false, "Show advanced settings (shorthand)")
	flag.Var(&assignments, "set", "Set [plugin:]section.key=value before listing (repeatable)")
	flag.BoolVar(&opts.Watch, "watch", false, "Keep running plugins and reload config files on change")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides logging.level")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "confman - settings for the host and its Lua plugins\n\n")
		fmt.Fprintf(os.Stderr, "Usage: confman [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  confman                                  List settings\n")
		fmt.Fprintf(os.Stderr, "  confman -a -d                            Include advanced and debug settings\n")
		fmt.Fprintf(os.Stderr, "  confman -set logging.level=debug         Change a core setting\n")
		fmt.Fprintf(os.Stderr, "  confman -set clock:display.format=24h    Change a plugin setting\n")
		fmt.Fprintf(os.Stderr, "  confman -plugins ./plugins -watch        Run plugins from ./plugins\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("confman %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if err := checkLogLevel(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %s\n", strings.Join(flag.Args(), " "))
		os.Exit(1)
	}

	opts.PluginPaths = pluginPaths
	opts.Version = version
	cli.assignments = assignments
	return opts, cli
}

// checkLogLevel accepts an empty level (use the config file) or any name
// logging.ParseLevel recognizes.
func checkLogLevel(level string) error {
	if level == "" || logging.ValidLevel(level) {
		return nil
	}
	return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
}
