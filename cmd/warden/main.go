// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/wardenhq/warden/lib/config"
	"github.com/wardenhq/warden/lib/process"
	"github.com/wardenhq/warden/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("subcommand required")
	}

	subcommand := args[0]
	switch subcommand {
	case "serve":
		return runServe(args[1:])
	case "reset-password":
		return runResetPassword(args[1:], stdout)
	case "rotate-signing-key":
		return runRotateSigningKey(args[1:], stdout)
	case "version", "--version":
		fmt.Fprintf(stdout, "warden %s\n", version.Full())
		return nil
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: warden <subcommand> [flags]

Subcommands:
  serve               Run the control plane
  reset-password      Replace the operator password
  rotate-signing-key  Replace the token signing key (revokes every token)
  version             Print version information

Run 'warden <subcommand> --help' for subcommand flags.
`)
}

// configFlags are the flags every subcommand that reads configuration
// shares.
type configFlags struct {
	path string
}

func (c *configFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&c.path, "config", "c", "", "config file (default: $WARDEN_CONFIG, else built-in defaults)")
}

// load reads and validates the configuration. Overrides are applied
// before validation.
func (c *configFlags) load(overrides ...func(*config.Config)) (*config.Config, error) {
	var settings *config.Config
	var err error
	if c.path != "" {
		settings, err = config.LoadFile(c.path)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	for _, apply := range overrides {
		apply(settings)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return settings, nil
}

// parseFlags parses args, printing usage for --help. Reports whether
// the caller should stop (help was shown).
func parseFlags(flagSet *pflag.FlagSet, args []string, stdout io.Writer) (bool, error) {
	flagSet.BoolP("help", "h", false, "show help")
	if err := flagSet.Parse(args); err != nil {
		return false, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(stdout, "Usage: warden %s [flags]\n\n%s", flagSet.Name(), flagSet.FlagUsages())
		return true, nil
	}
	if flagSet.NArg() > 0 {
		return false, fmt.Errorf("unexpected argument %q", flagSet.Arg(0))
	}
	return false, nil
}

// newLogger builds the process logger. Format "auto" picks text on a
// terminal and JSON otherwise.
func newLogger(w io.Writer, format, level string, terminal bool) (*slog.Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	options := &slog.HandlerOptions{Level: slogLevel}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "auto", "":
		if terminal {
			return slog.New(slog.NewTextHandler(w, options)), nil
		}
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want json, text or auto)", format)
	}
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
