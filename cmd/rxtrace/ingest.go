package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	logAdapter "github.com/dotbot-tools/rxtrace/internal/adapters/log"
	"github.com/dotbot-tools/rxtrace/internal/cliconfig"
	"github.com/dotbot-tools/rxtrace/internal/domain"
	"github.com/dotbot-tools/rxtrace/pkg/rxtrace"
)

func newRunCmd(log *zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Read frames from the receiver's serial port until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			return ingest(cfg, "", log)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.Port, "port", cfg.Port, "serial device of the receiving board")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "serial read timeout (100ms steps)")
	fs.StringVar(&cfg.RawCapture, "raw-capture", cfg.RawCapture, "append every byte read to this file for later replay")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "exit when the port reports end of stream")
	addPipelineFlags(fs, &cfg, &cfgPath)
	return cmd
}

func newReplayCmd(log *zerolog.Logger) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "replay <capture.bin>",
		Short: "Feed a raw byte capture through the pipeline and exit at end of file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			cfg.Once = true
			return ingest(cfg, args[0], log)
		},
	}
	addPipelineFlags(cmd.Flags(), &cfg, &cfgPath)
	return cmd
}

// ingest runs a Tracer until the source ends, a fatal error occurs or the
// process receives SIGINT/SIGTERM.
func ingest(cfg cliconfig.Config, capturePath string, base *zerolog.Logger) error {
	level, err := cliconfig.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := base.Level(level)
	*base = log

	logCfg := cfg
	if len(logCfg.AuthKey) > 0 {
		logCfg.AuthKey = "*****"
	}
	log.Info().Interface("config", logCfg).Msg("configuration")

	libCfg := rxtrace.Config{
		Port:           cfg.Port,
		Baud:           uint(cfg.Baud),
		ReadTimeout:    cfg.ReadTimeout,
		CapturePath:    capturePath,
		RawCapture:     cfg.RawCapture,
		TrailerVersion: cfg.TrailerVersion,
		SkipFCS:        !cfg.FCS,
		MaxFrameSize:   cfg.MaxFrameSize,
		ReadSize:       cfg.ReadSize,
		PollInterval:   cfg.PollInterval,
		SweepFile:      cfg.SweepFile,
		TableFile:      cfg.TableFile,
		RadioModes:     cfg.RadioModes,
		ReferenceFile:  cfg.ReferenceFile,
		CaptureName:    cfg.CaptureName,
		OutputDir:      cfg.OutputDir,
		StateDir:       cfg.StateDir,
		ForwardURL:     cfg.ForwardURL,
		AuthKey:        cfg.AuthKey,
		SendInterval:   cfg.SendInterval,
		HardInterval:   cfg.HardInterval,
		MaxBatchBytes:  cfg.MaxBatchBytes,
		HTTPTimeout:    cfg.HTTPTimeout,
		Once:           cfg.Once,
	}

	opts := []rxtrace.Option{rxtrace.WithLogger(logAdapter.NewZerologAdapterWithLogger(log))}
	if cfg.Print {
		opts = append(opts, rxtrace.WithEventHandler(newPrintHandler(os.Stdout)))
	}

	tr, err := rxtrace.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create tracer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := tr.Start(ctx); err != nil {
		return fmt.Errorf("start tracer: %w", err)
	}

	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
		if err := tr.Stop(); err != nil {
			return fmt.Errorf("stop tracer: %w", err)
		}
	case <-tr.Done():
	}

	if tr.Status() == rxtrace.StateCrashed {
		return fmt.Errorf("ingestion crashed: %w", tr.Err())
	}
	return nil
}

// printedRecord is the stdout form of a stored record.
type printedRecord struct {
	Key string `json:"key"`
	domain.StoredRecord
}

// printHandler writes every stored record as a JSON line.
type printHandler struct {
	rxtrace.BaseEventHandler

	mu  sync.Mutex
	enc *json.Encoder
}

func newPrintHandler(w io.Writer) *printHandler {
	return &printHandler{enc: json.NewEncoder(w)}
}

func (h *printHandler) OnRecord(e rxtrace.RecordEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.enc.Encode(printedRecord{Key: e.Key, StoredRecord: e.Record.ToStored()})
}
