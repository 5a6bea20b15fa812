package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

func callCommand(opts *sessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <operation> [args...]",
		Short: "Invoke one operation through the boundary",
		Long: `Invoke one operation through the boundary. Each argument is JSON read
against the parameter's WIT type; bare words are strings. Guest stdout and
stderr are printed after the result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*opts)
			if err != nil {
				return err
			}
			defer s.Close()

			op, ok := s.surface.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown operation %q", args[0])
			}
			values, err := parseArgs(op, args[1:])
			if err != nil {
				return err
			}

			result, err := s.surface.Call(cmd.Context(), op.QualifiedName(), values...)
			if err != nil {
				return fmt.Errorf("call %s: %w", op.Name, err)
			}
			out := cmd.OutOrStdout()
			if op.Result != nil {
				fmt.Fprintln(out, transcoder.Format(result))
			}
			if stdout := s.wasi.Stdout(); len(stdout) > 0 {
				fmt.Fprintf(out, "\n--- stdout ---\n%s", stdout)
			}
			if stderr := s.wasi.Stderr(); len(stderr) > 0 {
				fmt.Fprintf(out, "\n--- stderr ---\n%s", stderr)
			}
			return nil
		},
	}
	return cmd
}

func parseArgs(op *boundary.Operation, raw []string) ([]transcoder.Value, error) {
	if len(raw) != len(op.Params) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", op.Name, len(op.Params), len(raw))
	}
	values := make([]transcoder.Value, len(raw))
	for i, r := range raw {
		v, err := parseArg(op.Params[i], r)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, typeString(op.Params[i]), err)
		}
		values[i] = v
	}
	return values, nil
}
