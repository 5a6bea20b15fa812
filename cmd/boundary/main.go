package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/engine"
	"github.com/wippyai/wasm-boundary/transcoder"
	"github.com/wippyai/wasm-boundary/wasi/preview2"
	"github.com/wippyai/wasm-boundary/wasi/preview2/cli"
	wasiio "github.com/wippyai/wasm-boundary/wasi/preview2/io"
	"github.com/wippyai/wasm-boundary/wasi/preview2/sockets"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	var logLevel string
	var opts sessionOptions

	rootCommand := &cobra.Command{
		Use:           "boundary",
		Short:         "WebAssembly host boundary tool",
		Long:          "boundary - inspect and exercise the WASI host surface",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	rootCommand.AddCommand(opsCommand(&opts))
	rootCommand.AddCommand(callCommand(&opts))
	rootCommand.AddCommand(interactiveCommand(&opts))
	rootCommand.AddCommand(selftestCommand())
	rootCommand.AddCommand(echoCommand())

	flags := rootCommand.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringToStringVar(&opts.env, "env", nil, "guest environment variables (KEY=VAL,...)")
	flags.StringSliceVar(&opts.args, "argv", nil, "guest arguments")
	flags.StringVar(&opts.cwd, "cwd", "", "guest initial working directory")
	flags.StringVar(&opts.stdin, "stdin", "", "guest stdin contents")

	return rootCommand
}

func setupLogging(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	transcoder.SetLogger(logger)
	engine.SetLogger(logger)
	boundary.SetLogger(logger)
	preview2.SetLogger(logger)
	wasiio.SetLogger(logger)
	sockets.SetLogger(logger)
	return nil
}

func main() {
	rootCommand := configureCLI()

	if err := rootCommand.ExecuteContext(context.Background()); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(int(exit.Code))
		}

		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
