package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"expensepie/internal/chart"
)

type entry struct {
	Weight float64 `yaml:"weight"`
	Tag    string  `yaml:"tag"`
}

type sliceOutput struct {
	Tag        string  `json:"tag"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Sweep      float64 `json:"sweep"`
	Share      float64 `json:"share"`
}

func newPartitionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "partition [file]",
		Short: "Split the circle among weighted entries",
		Long: `Read a YAML or JSON list of entries and print the angular slice of each.
With no file, entries are read from stdin.

Examples:
  piectl partition entries.yaml
  echo '[{"weight": 1, "tag": "a"}, {"weight": 3, "tag": "b"}]' | piectl partition --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			entries, err := readEntries(in)
			if err != nil {
				return err
			}
			slices, err := chart.Partition(entries)
			if err != nil {
				return err
			}

			if format == "json" {
				return writeSlicesJSON(cmd.OutOrStdout(), slices)
			}
			return writeSlicesTable(cmd.OutOrStdout(), slices)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")
	return cmd
}

// readEntries accepts YAML, which covers JSON input as well.
func readEntries(r io.Reader) ([]chart.WeightedEntry[string], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	var raw []entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse entries: %w", err)
	}
	out := make([]chart.WeightedEntry[string], len(raw))
	for i, e := range raw {
		out[i] = chart.WeightedEntry[string]{Weight: e.Weight, Tag: e.Tag}
	}
	return out, nil
}

func writeSlicesTable(w io.Writer, slices []chart.Slice[string]) error {
	if len(slices) == 0 {
		_, err := fmt.Fprintln(w, "no slices (empty input or all weights zero)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tSTART\tEND\tSWEEP\tSHARE")
	for _, s := range slices {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%.1f%%\n", s.Tag, s.StartAngle, s.EndAngle, s.Sweep(), s.Share()*100)
	}
	return tw.Flush()
}

func writeSlicesJSON(w io.Writer, slices []chart.Slice[string]) error {
	out := make([]sliceOutput, len(slices))
	for i, s := range slices {
		out[i] = sliceOutput{
			Tag:        s.Tag,
			StartAngle: s.StartAngle,
			EndAngle:   s.EndAngle,
			Sweep:      s.Sweep(),
			Share:      s.Share(),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
