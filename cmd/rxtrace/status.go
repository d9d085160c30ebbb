package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotbot-tools/rxtrace/internal/adapters/fs"
	"github.com/dotbot-tools/rxtrace/internal/domain"
)

func newStatusCmd() *cobra.Command {
	var (
		stateDir string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the session counters saved by the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := fs.NewStatusFileRepository(stateDir)
			s, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}
			if s.StartedAt.IsZero() {
				return fmt.Errorf("no status at %s", repo.Path())
			}
			return printStatus(cmd.OutOrStdout(), s, asJSON)
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "results", "directory holding status.json")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func printStatus(w io.Writer, s domain.Session, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "started:         %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "updated:         %s\n", s.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "bytes read:      %d\n", s.BytesRead)
	fmt.Fprintf(w, "frames:          %d\n", s.Frames)
	fmt.Fprintf(w, "records:         %d\n", s.Records)
	fmt.Fprintf(w, "framing drops:   %d\n", s.FramingDrops)
	fmt.Fprintf(w, "decode failures: %d\n", s.DecodeFailures)
	fmt.Fprintf(w, "unknown configs: %d\n", s.UnknownConfigs)
	fmt.Fprintf(w, "forwarded:       %d\n", s.Forwarded)
	if s.LastKey != "" {
		fmt.Fprintf(w, "last key:        %s (config %d, id %d)\n", s.LastKey, s.LastConfigState, s.LastID)
	}
	if s.Fatal != "" {
		fmt.Fprintf(w, "fatal:           %s\n", s.Fatal)
	}
	return nil
}
