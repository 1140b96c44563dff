// Package batch extracts local documents and writes each result next to the
// others in an output directory.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/async"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/export"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

// Extractor runs one extraction; *pipeline.Processor satisfies it.
type Extractor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Runner is an async.Handler that extracts one file per job.
type Runner struct {
	Extractor Extractor
	Exporter  *export.Service // nil disables the XLSX output
	Mode      constants.Mode
	Fields    []schema.Field
	OutDir    string
	Logger    *slog.Logger
}

var _ async.Handler = (*Runner)(nil)

// OutputPath names the result file for a document: "<outDir>/<file name><ext>".
// The document's own extension is kept so "a.pdf" and "a.png" do not collide.
func OutputPath(outDir, docPath, ext string) string {
	return filepath.Join(outDir, filepath.Base(docPath)+ext)
}

func (r *Runner) Handle(ctx context.Context, job async.Job) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx = common.WithRequestID(ctx, job.TraceID)

	doc, err := ingest.DocumentFromFile(job.Path)
	if err != nil {
		return err
	}
	result, err := r.Extractor.Process(ctx, pipeline.Request{Mode: r.Mode, Fields: r.Fields, Document: doc})
	if err != nil {
		return fmt.Errorf("extract %s: %w", job.Path, err)
	}

	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	jsonPath := OutputPath(r.OutDir, job.Path, ".json")
	if err := os.WriteFile(jsonPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}

	if r.Exporter != nil {
		b, err := r.Exporter.ExportResultXLSX(ctx, result)
		if err != nil {
			return err
		}
		xlsxPath := OutputPath(r.OutDir, job.Path, ".xlsx")
		if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", xlsxPath, err)
		}
	}

	logger.Info("batch.file.ok",
		"path", job.Path,
		"output", jsonPath,
		"warnings", len(result.Warnings),
	)
	return nil
}
