package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/async"
	"github.com/joseph-ayodele/doc-extractor/internal/batch"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/export"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

type batchFlags struct {
	extractFlags
	dir        string
	out        string
	withXLSX   bool
	watch      bool
	workers    int
	timeout    time.Duration
	skipHidden bool
}

func newBatchCmd() *cobra.Command {
	var f batchFlags
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Extract every supported document in a directory",
		Long: `Extracts every supported document under --dir and writes <file>.json
(and <file>.xlsx with --xlsx) into --out. With --watch the directory keeps
being watched and new or rewritten documents are extracted as they appear.`,
		Example: `  docextract batch --dir ./invoices --mode custom --preset invoice --xlsx
  docextract batch --dir ./inbox --out ./results --mode verbatim --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "directory to process (required)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output directory (default <dir>/results)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", string(constants.ModeGeneral), "extraction mode: general, verbatim or custom")
	cmd.Flags().StringVar(&f.fieldsPath, "fields", "", "JSON file with the custom field list")
	cmd.Flags().StringVar(&f.preset, "preset", "", "built-in field preset for custom mode")
	cmd.Flags().BoolVar(&f.withXLSX, "xlsx", false, "also write an XLSX workbook per document")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "keep watching --dir for new documents")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "documents extracted concurrently")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 3*time.Minute, "time limit per document")
	cmd.Flags().BoolVar(&f.skipHidden, "skip-hidden", true, "ignore dot-files and dot-directories")
	_ = cmd.MarkFlagRequired("dir")
	cmd.MarkFlagsMutuallyExclusive("fields", "preset")
	return cmd
}

func runBatch(ctx context.Context, f batchFlags) error {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, ok := constants.ParseMode(f.mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", f.mode)
	}
	var fields []schema.Field
	if mode == constants.ModeCustom {
		var err error
		if fields, err = loadFields(f.extractFlags); err != nil {
			return err
		}
	}
	if f.out == "" {
		f.out = filepath.Join(f.dir, "results")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor, err := newProcessor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	runner := &batch.Runner{
		Extractor: processor,
		Mode:      mode,
		Fields:    fields,
		OutDir:    f.out,
		Logger:    logger,
	}
	if f.withXLSX {
		runner.Exporter = export.NewService(logger)
	}
	queue := async.NewProcessorQueue(runner, logger,
		async.WithWorkers(f.workers),
		async.WithProcessTimeout(f.timeout),
	)

	if f.watch {
		err = watchAndEnqueue(ctx, f, queue, logger)
	} else {
		err = scanAndEnqueue(ctx, f, queue, logger)
	}
	queue.Shutdown(context.Background())

	stats := queue.Stats()
	logger.Info("batch.done", "dir", f.dir, "out", f.out, "succeeded", stats.Succeeded, "failed", stats.Failed)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", stats.Failed, stats.Failed+stats.Succeeded)
	}
	return nil
}

func scanAndEnqueue(ctx context.Context, f batchFlags, q async.Queue, logger *slog.Logger) error {
	paths, stats, err := ingest.ScanDirectory(f.dir, f.skipHidden)
	if err != nil {
		return err
	}
	logger.Info("batch.scan", "dir", f.dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	for _, p := range paths {
		if isUnder(p, f.out) {
			continue
		}
		if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
			return err
		}
	}
	return nil
}

func watchAndEnqueue(ctx context.Context, f batchFlags, q async.Queue, logger *slog.Logger) error {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{f.dir},
		InitialScan: true,
		SkipHidden:  f.skipHidden,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("batch.watch", "dir", f.dir, "out", f.out)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return nil
			}
			if isUnder(p, f.out) {
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("batch.watch.error", "error", err)
		}
	}
}

// isUnder reports whether path lies inside dir.
func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
