package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/export"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/llm"
	"github.com/joseph-ayodele/doc-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/doc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/doc-extractor/internal/presets"
	"github.com/joseph-ayodele/doc-extractor/internal/schema"
)

type extractFlags struct {
	input      string
	mode       string
	fieldsPath string
	preset     string
	output     string
	xlsx       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "docextract",
		Short:        "Run document extractions from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(newExtractCmd(), newBatchCmd(), newPresetsCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract content or structured fields from a document",
		Example: `  docextract extract --input scan.pdf --mode verbatim
  docextract extract --input invoice.pdf --mode custom --preset invoice --xlsx invoice.xlsx
  docextract extract --input cv.png --mode custom --fields fields.json --output cv.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "document to extract from (required)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", string(constants.ModeGeneral), "extraction mode: general, verbatim or custom")
	cmd.Flags().StringVar(&f.fieldsPath, "fields", "", "JSON file with the custom field list")
	cmd.Flags().StringVar(&f.preset, "preset", "", "built-in field preset for custom mode")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the result JSON here instead of stdout")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "also write the result as an XLSX workbook")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("fields", "preset")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in field presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := presets.Builtin()
			if err != nil {
				return err
			}
			for _, p := range catalog.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %2d fields  %s\n", p.Name, len(p.Fields), p.Description)
			}
			return nil
		},
	}
}

func runExtract(ctx context.Context, f extractFlags) error {
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
		if fields, err = loadFields(f); err != nil {
			return err
		}
	}

	doc, err := ingest.DocumentFromFile(f.input)
	if err != nil {
		return err
	}
	processor, err := newProcessor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := processor.Process(ctx, pipeline.Request{Mode: mode, Fields: fields, Document: doc})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if f.output != "" {
		if err := os.WriteFile(f.output, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else {
		fmt.Println(string(out))
	}

	if f.xlsx != "" {
		b, err := export.NewService(logger).ExportResultXLSX(ctx, result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.xlsx, b, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	return nil
}

func newProcessor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*pipeline.Processor, error) {
	client, err := gemini.NewClient(ctx, gemini.ConfigFromApp(cfg.LLM), logger)
	if err != nil {
		return nil, err
	}
	return pipeline.NewProcessor(logger, client, llm.InvokerFromConfig(cfg.LLM, logger), pipeline.OptionsFromConfig(cfg)), nil
}

func loadFields(f extractFlags) ([]schema.Field, error) {
	if f.preset != "" {
		catalog, err := presets.Builtin()
		if err != nil {
			return nil, err
		}
		p, ok := catalog.Get(f.preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", f.preset, catalog.Names())
		}
		return p.Fields, nil
	}
	if f.fieldsPath == "" {
		return nil, fmt.Errorf("custom mode needs --fields or --preset")
	}
	raw, err := os.ReadFile(f.fieldsPath)
	if err != nil {
		return nil, fmt.Errorf("read fields: %w", err)
	}
	return schema.ParseFields(raw)
}
