package main

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-boundary/boundary"
	"github.com/wippyai/wasm-boundary/transcoder"
)

// selftestRow is one round trip in the report.
type selftestRow struct {
	Type   string `csv:"type"`
	Value  string `csv:"value"`
	Path   string `csv:"path"`
	Flat   int    `csv:"flat"`
	Bytes  uint32 `csv:"bytes"`
	Status string `csv:"status"`
}

type selftestCase struct {
	t wit.Type
	v transcoder.Value
}

func selftestCases() []selftestCase {
	point := boundary.Record("point", boundary.Field("x", wit.S32{}), boundary.Field("y", wit.S32{}))
	shape := boundary.Variant("shape",
		boundary.Case("circle", wit.F64{}),
		boundary.Case("square", point),
		boundary.Case("empty", nil),
	)
	perms := boundary.Flags("perms", "read", "write", "exec")
	flags, _ := transcoder.FlagsByName(perms, "read", "exec")

	return []selftestCase{
		{wit.Bool{}, transcoder.Bool(true)},
		{wit.U8{}, transcoder.U8(255)},
		{wit.S16{}, transcoder.S16(-32768)},
		{wit.U32{}, transcoder.U32(math.MaxUint32)},
		{wit.S64{}, transcoder.S64(math.MinInt64)},
		{wit.F32{}, transcoder.F32(3.5)},
		{wit.F64{}, transcoder.F64(math.NaN())},
		{wit.Char{}, transcoder.Char('λ')},
		{wit.String{}, transcoder.String("héllo, wörld")},
		{boundary.Bytes, transcoder.BytesOf([]byte{0, 1, 2, 254, 255})},
		{boundary.List(wit.String{}), transcoder.List{transcoder.String("a"), transcoder.String(""), transcoder.String("ccc")}},
		{point, transcoder.Record{{Name: "x", Value: transcoder.S32(-1)}, {Name: "y", Value: transcoder.S32(2)}}},
		{boundary.Tuple(wit.U8{}, wit.String{}, wit.F64{}), transcoder.Tuple{transcoder.U8(1), transcoder.String("two"), transcoder.F64(3)}},
		{shape, transcoder.Case("square", transcoder.Record{{Name: "x", Value: transcoder.S32(3)}, {Name: "y", Value: transcoder.S32(4)}})},
		{shape, transcoder.Case("empty", nil)},
		{boundary.Enum("color", "red", "green", "blue"), transcoder.Enum("blue")},
		{perms, flags},
		{boundary.Option(wit.U16{}), transcoder.Some(transcoder.U16(7))},
		{boundary.Option(wit.U16{}), transcoder.None()},
		{boundary.Result(wit.String{}, wit.U32{}), transcoder.Err(transcoder.U32(404))},
		{boundary.Result(nil, nil), transcoder.Ok(nil)},
		{boundary.Own(boundary.Resource("file")), transcoder.Handle(9)},
	}
}

// runSelftest lowers and lifts every case through memory and through the
// flat calling convention.
func runSelftest() []selftestRow {
	codec := transcoder.Default()
	var rows []selftestRow
	for _, c := range selftestCases() {
		base := selftestRow{Type: typeString(c.t), Value: transcoder.Format(c.v)}

		row := base
		row.Path = "memory"
		wire, err := codec.Lower(c.t, c.v)
		if err == nil {
			row.Bytes = wire.Memory.Size()
			var back transcoder.Value
			back, err = codec.Lift(c.t, wire)
			err = check(c.v, back, err)
		}
		row.Status = status(err)
		rows = append(rows, row)

		row = base
		row.Path = "flat"
		mem := transcoder.NewLinearMemory(0)
		flat, err := codec.LowerFlat(mem, mem, []wit.Type{c.t}, []transcoder.Value{c.v}, transcoder.MaxFlatParams)
		if err == nil {
			row.Flat = len(flat)
			row.Bytes = mem.Size()
			var back []transcoder.Value
			back, err = codec.LiftFlat(mem, []wit.Type{c.t}, flat, transcoder.MaxFlatParams)
			if err == nil {
				err = check(c.v, back[0], nil)
			}
		}
		row.Status = status(err)
		rows = append(rows, row)
	}
	return rows
}

func check(want, got transcoder.Value, err error) error {
	if err != nil {
		return err
	}
	if !transcoder.Equal(want, got, transcoder.NaNCanonicalize) {
		return fmt.Errorf("got %s", transcoder.Format(got))
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "FAIL: " + err.Error()
	}
	return "ok"
}

func selftestCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Round-trip sample values through the canonical ABI codec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := runSelftest()
			out := cmd.OutOrStdout()

			switch format {
			case "csv":
				data, err := csvutil.Marshal(rows)
				if err != nil {
					return err
				}
				if _, err := out.Write(data); err != nil {
					return err
				}
			case "table":
				t := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("TYPE", "VALUE", "PATH", "FLAT", "BYTES", "STATUS").
					StyleFunc(func(row, col int) lipgloss.Style {
						if row != table.HeaderRow && row >= 0 && row < len(rows) && col == 5 && rows[row].Status != "ok" {
							return errorStyle
						}
						return lipgloss.NewStyle()
					})
				for _, r := range rows {
					t.Row(r.Type, r.Value, r.Path, fmt.Sprint(r.Flat), fmt.Sprint(r.Bytes), r.Status)
				}
				fmt.Fprintln(out, t.Render())
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			for _, r := range rows {
				if r.Status != "ok" {
					return fmt.Errorf("selftest failed")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "report format (table, csv)")

	return cmd
}
