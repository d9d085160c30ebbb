package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dotbot-tools/rxtrace/internal/adapters/fs"
	logAdapter "github.com/dotbot-tools/rxtrace/internal/adapters/log"
	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/internal/errstats"
	"github.com/dotbot-tools/rxtrace/internal/watch"
)

type statsOptions struct {
	reference string
	jobs      int
	asJSON    bool
	bits      bool
	follow    bool
}

func newStatsCmd(log *zerolog.Logger) *cobra.Command {
	opts := statsOptions{jobs: runtime.NumCPU()}

	cmd := &cobra.Command{
		Use:   "stats <file|dir>...",
		Short: "Compute packet and bit error rates from stored JSONL outputs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reference := errstats.DefaultReference()
			if opts.reference != "" {
				b, err := os.ReadFile(opts.reference)
				if err != nil {
					return fmt.Errorf("read reference: %w", err)
				}
				reference = b
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			report := func() error {
				summaries, err := computeStats(ctx, args, reference, opts.jobs)
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), summaries, opts)
			}
			if err := report(); err != nil {
				return err
			}
			if !opts.follow {
				return nil
			}

			follower, err := watch.NewFollower(args, fs.OutputExt, watch.DefaultDebounce,
				logAdapter.NewZerologAdapterWithLogger(*log))
			if err != nil {
				return err
			}
			err = follower.Run(ctx, func() {
				if err := report(); err != nil {
					log.Warn().Err(err).Msg("stats refresh failed")
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.reference, "reference", "", "raw reference payload (default: firmware packet_tx)")
	f.IntVar(&opts.jobs, "jobs", opts.jobs, "files read concurrently")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	f.BoolVar(&opts.bits, "bits", false, "include per-bit error rates in JSON output")
	f.BoolVar(&opts.follow, "follow", false, "recompute when the outputs change")
	return cmd
}

// computeStats reads every JSONL output under paths concurrently and returns
// one summary per file, in path order. Files without records yield a summary
// marked NoData.
func computeStats(ctx context.Context, paths []string, reference []byte, jobs int) ([]errstats.Summary, error) {
	files, err := fs.ExpandOutputs(paths)
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = 1
	}

	summaries := make([]errstats.Summary, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			acc := errstats.NewAccumulator(reference)
			err := fs.ReadRecords(path, func(rec domain.Record) error {
				acc.IngestRecord(rec)
				return gctx.Err()
			})
			if err != nil {
				return err
			}
			s, err := acc.Summarize(fs.KeyOf(path))
			if err != nil && !errors.Is(err, domain.ErrNoPackets) {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func printStats(w io.Writer, summaries []errstats.Summary, opts statsOptions) error {
	if opts.asJSON {
		if !opts.bits {
			for i := range summaries {
				summaries[i].BitErrorRates = nil
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tPACKETS\tCRC ERRORS\tPER %\tMEAN BER %")
	for _, s := range summaries {
		if s.NoData {
			fmt.Fprintf(tw, "%s\t%d\t%d\tn/a\tn/a\n", s.Key, s.TotalPackets, s.CRCErrors)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.4f\n",
			s.Key, s.TotalPackets, s.CRCErrors, s.PacketErrorRate, s.MeanBitErrorRate)
	}
	return tw.Flush()
}
