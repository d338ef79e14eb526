// Command syscheck prints the diagnostics report for this machine as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"fill-nodes-go/internal/config"
	"fill-nodes-go/internal/container"
	"fill-nodes-go/internal/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var profilePath string
	var python string
	var envVars []string
	var compact bool
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("syscheck", pflag.ContinueOnError)
	flagSet.StringVar(&profilePath, "profile", "", "YAML diagnostics profile (overrides DIAG_PROFILE)")
	flagSet.StringVar(&python, "python", "", "python interpreter used for library lookups (overrides PYTHON_BIN)")
	flagSet.StringSliceVar(&envVars, "env", nil, "environment variables to report (overrides DIAG_ENV_VARS)")
	flagSet.BoolVar(&compact, "compact", false, "print the report on one line")
	flagSet.DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	// Keep stdout for the report.
	logger.Logger.SetOutput(os.Stderr)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if profilePath != "" {
		if err := cfg.ApplyProfile(profilePath); err != nil {
			return err
		}
	}
	if python != "" {
		cfg.Python = python
	}
	if flagSet.Changed("env") {
		cfg.EnvVars = envVars
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := container.NewGatherer(cfg, nil).Gather(ctx)
	if err != nil {
		return err
	}

	var out []byte
	if compact {
		out, err = json.Marshal(report)
	} else {
		out, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `syscheck prints OS, CPU, RAM, GPU, library versions and selected
environment variables as a JSON object. Lookups that fail are reported
inline ("Not installed", "Not set", ...) and never abort the report.

Usage:
  syscheck [flags]

Flags:
`)
	flagSet.PrintDefaults()
}
