package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"
	"golang.org/x/term"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

func opsCommand(opts *sessionOptions) *cobra.Command {
	var iface string

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List the operations on the host surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(*opts)
			if err != nil {
				return err
			}
			defer s.Close()

			styled := term.IsTerminal(int(os.Stdout.Fd()))
			last := ""
			for _, op := range s.surface.Operations() {
				if iface != "" && !strings.Contains(op.Interface, iface) {
					continue
				}
				if op.Interface != last {
					last = op.Interface
					header := op.Interface
					if styled {
						header = titleStyle.Render(header)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", header)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", signature(op, styled))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&iface, "interface", "", "only list interfaces containing this string")

	return cmd
}

// signature renders op as name(params) -> result.
func signature(op *boundary.Operation, styled bool) string {
	render := func(st lipgloss.Style, s string) string {
		if styled {
			return st.Render(s)
		}
		return s
	}
	params := make([]string, len(op.Params))
	for i, p := range op.Params {
		params[i] = render(typeStyle, typeString(p))
	}
	sig := render(funcStyle, op.Name) + "(" + strings.Join(params, ", ") + ")"
	if op.Result != nil {
		sig += " -> " + render(typeStyle, typeString(op.Result))
	}
	return sig
}

// typeString extends transcoder.TypeName with handle targets.
func typeString(t wit.Type) string {
	if td, ok := t.(*wit.TypeDef); ok {
		switch k := td.Kind.(type) {
		case *wit.Own:
			return "own<" + transcoder.TypeName(k.Type) + ">"
		case *wit.Borrow:
			return "borrow<" + transcoder.TypeName(k.Type) + ">"
		}
	}
	return transcoder.TypeName(t)
}
