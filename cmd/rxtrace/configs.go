package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotbot-tools/rxtrace/internal/experiment"
)

// Output formats of the configs command.
const (
	formatYAML     = "yaml"
	formatCTx      = "c-tx"
	formatCBlocker = "c-blocker"
)

func newConfigsCmd() *cobra.Command {
	var (
		format    string
		sweepFile string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Print the experiment table as YAML or as firmware C initializers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sweep := experiment.DefaultSweep()
			if sweepFile != "" {
				s, err := experiment.LoadSweep(sweepFile)
				if err != nil {
					return err
				}
				sweep = s
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			bw := bufio.NewWriter(w)
			if err := writeConfigs(bw, sweep, format); err != nil {
				return err
			}
			return bw.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", formatYAML, "output format (yaml|c-tx|c-blocker)")
	f.StringVar(&sweepFile, "sweep", "", "YAML sweep definition (default: built-in campaign)")
	f.StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func writeConfigs(w io.Writer, sweep experiment.Sweep, format string) error {
	table, err := sweep.Generate()
	if err != nil {
		return err
	}

	switch format {
	case formatYAML:
		b, err := experiment.MarshalTable(table, experiment.DefaultModes)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case formatCTx:
		return experiment.WriteTransmitterC(w, table)
	case formatCBlocker:
		return experiment.WriteBlockerC(w, table, sweep.ToneCarrier())
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatYAML, formatCTx, formatCBlocker)
	}
}
