package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"funee/internal/bundler"
	"funee/internal/config"
	"funee/internal/report"
	"funee/internal/runtime"
	"funee/internal/watch"
)

const Version = "0.3.0"

var (
	flagEmit   bool
	flagReload bool
	flagWatch  bool
	flagDebug  bool
)

// errMisuse marks CLI-level failures (exit 2) as opposed to bundle and
// runtime failures (exit 1).
var errMisuse = errors.New("cli misuse")

var rootCmd = &cobra.Command{
	Use:           "funee <entry.ts>",
	Short:         "funee bundles a TypeScript entry module and runs its default export",
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			cmd.Usage()
			return errMisuse
		}
		return run(cmd.Context(), args[0])
	},
}

var bundleCmd = &cobra.Command{
	Use:           "bundle <entry.ts>",
	Short:         "Bundle the entry module (and run it unless --emit is set)",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.SetVersionTemplate("funee {{.Version}}\n")
	for _, c := range []*cobra.Command{rootCmd, bundleCmd} {
		c.Flags().BoolVar(&flagEmit, "emit", false, "print the bundled JavaScript instead of executing it")
		c.Flags().BoolVar(&flagReload, "reload", false, "bypass the HTTP cache and fetch fresh from the network")
		c.Flags().BoolVar(&flagWatch, "watch", false, "re-bundle and re-run when a source file changes")
		c.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	}
	rootCmd.AddCommand(bundleCmd)
}

// Execute runs the CLI. Exit codes: 0 success, 1 bundle/runtime failure,
// 2 misuse.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if errors.Is(err, errMisuse) {
		os.Exit(2)
	}
	// cobra flag/arg errors never reach RunE; they are misuse too
	if _, ok := err.(*report.Diagnostic); !ok && isUsageError(err) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(1)
}

func isUsageError(err error) bool {
	var d *report.Diagnostic
	return !errors.As(err, &d)
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if flagDebug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func run(ctx context.Context, entry string) error {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid configuration: %v\n", err)
		return errMisuse
	}
	log := newLogger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bundler.New(settings, log, os.Stderr)

	runOnce := func() error {
		result, err := b.Bundle(ctx, entry, bundler.Options{
			Reload:   flagReload,
			EmitOnly: flagEmit,
		})
		if err != nil {
			displayError(err, result)
			return err
		}
		if flagEmit {
			fmt.Fprint(os.Stdout, result.Bundle)
			return nil
		}
		rt := runtime.New(settings, log, os.Stdout, os.Stderr)
		if err := rt.Execute(result.Bundle); err != nil {
			displayError(err, result)
			return err
		}
		return nil
	}

	if !flagWatch {
		return runOnce()
	}

	// watch mode: derive the watch set from the bundle's references
	result, err := b.Bundle(ctx, entry, bundler.Options{Reload: flagReload, EmitOnly: true})
	if err != nil {
		displayError(err, result)
		return err
	}
	if len(result.LocalFiles) == 0 {
		log.Warn().Msg("no local files to watch; running once")
		return runOnce()
	}
	if err := runOnce(); err != nil {
		log.Warn().Err(err).Msg("initial run failed; watching for changes")
	}

	driver := watch.New(result.LocalFiles, settings.WatchDebounce, log)
	return driver.Run(ctx, func() []string {
		if err := runOnce(); err != nil {
			log.Warn().Err(err).Msg("rebuild failed")
		}
		next, err := b.Bundle(ctx, entry, bundler.Options{Reload: false, EmitOnly: true})
		if err != nil || len(next.LocalFiles) == 0 {
			return nil
		}
		return next.LocalFiles
	})
}

func displayError(err error, result *bundler.Result) {
	var d *report.Diagnostic
	if errors.As(err, &d) {
		if result != nil && result.Files != nil {
			report.Display(d, result.Files)
		} else {
			fmt.Fprintf(os.Stderr, "error[%s]: %s\n", d.Kind, d.Error())
		}
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
