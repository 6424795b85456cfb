package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ironsheep/contour-count/internal/config"
	"github.com/ironsheep/contour-count/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// command is one subcommand of the CLI.
type command struct {
	name    string
	usage   string
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commands = []command{
	{"coins", "coins <image> [flags]", "count coins with the reference parameters", runCoins},
	{"detect", "detect <image>... [flags]", "count objects after a contrast/brightness boost", runDetect},
	{"clean", "clean [flags]", "add noise to a mask and clean it with open/close", runClean},
	{"mask", "mask <image> [flags]", "keep only a centred circle or square of an image", runMask},
	{"tune", "tune <image> [flags]", "tune a fixed threshold interactively", runTune},
}

func main() {
	logging.Setup("contour-count")
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "contour-count %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		err := c.run(args[1:], stdout)
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
	printUsage(stderr)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "contour-count - count objects in images by their outer contours")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	for _, c := range commands {
		fmt.Fprintf(w, "  contour-count %-26s %s\n", c.usage, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'contour-count <command> -h' for the flags of a command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=debug    Log level (debug, info, warn, error)\n", logging.EnvLevel)
	fmt.Fprintf(w, "  %s=json    Emit JSON log lines on stderr\n", logging.EnvFormat)
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func configFlag(fs *flag.FlagSet, path *string) {
	fs.StringVar(path, "config", "", "Path to a YAML or JSON parameter file")
}

// parseInterleaved parses flags that may appear before, between or after the
// positional arguments, which flag.Parse alone stops at.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// loadConfig reads the parameter file over base and then applies every flag
// the user set explicitly, so flags win over the file and the file wins over
// base.
func loadConfig(fs *flag.FlagSet, path string, base config.Config, overrides map[string]func(*config.Config)) (config.Config, error) {
	cfg, err := config.LoadOver(path, base)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(&cfg)
		}
	})
	return cfg, cfg.Validate()
}

// isSet reports whether the named flag appeared on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
