package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/doc-extractor/internal/jsonvalue"
	"github.com/joseph-ayodele/doc-extractor/internal/pipeline"
)

const (
	SheetFields   = "Fields"
	SheetSummary  = "Summary"
	SheetWarnings = "Warnings"

	maxCellChars = 32767
)

// Service renders extraction results as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Row is one flattened leaf of the data tree.
type Row struct {
	Path       string
	Value      any
	Confidence any // float64, or nil when no score applies
}

// ExportResultXLSX returns a workbook with three sheets: the flattened data
// with per-leaf confidence, a summary of the request, and the warnings.
func (s *Service) ExportResultXLSX(ctx context.Context, res *pipeline.Result) ([]byte, error) {
	start := time.Now()
	if res == nil {
		return nil, fmt.Errorf("nil result")
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", SheetFields); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetSummary, SheetWarnings} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	var rows []Row
	if res.Data != nil {
		var conf jsonvalue.Value
		if res.Confidence != nil {
			conf = *res.Confidence
		}
		rows = Flatten(*res.Data, conf)
	}

	writeRow(f, SheetFields, 1, "Field", "Value", "Confidence")
	for i, r := range rows {
		writeRow(f, SheetFields, i+2, r.Path, r.Value, r.Confidence)
	}
	_ = f.SetColWidth(SheetFields, "A", "A", 32)
	_ = f.SetColWidth(SheetFields, "B", "B", 60)
	_ = f.SetColWidth(SheetFields, "C", "C", 12)

	summary := [][2]any{
		{"File", res.FileName},
		{"File Size", res.FileSize},
		{"MIME Type", res.MimeType},
		{"Mode", string(res.Mode)},
		{"Model", res.Model},
		{"Request ID", res.RequestID},
		{"JSON Parse Error", res.JSONParseError},
		{"Content", truncate(res.Content, maxCellChars)},
	}
	if res.Confidence != nil {
		if n, ok := res.Confidence.Number(); ok {
			summary = append(summary, [2]any{"Confidence", n})
		}
	}
	for i, kv := range summary {
		writeRow(f, SheetSummary, i+1, kv[0], kv[1])
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 18)
	_ = f.SetColWidth(SheetSummary, "B", "B", 80)

	writeRow(f, SheetWarnings, 1, "Warning")
	for i, w := range res.Warnings {
		writeRow(f, SheetWarnings, i+2, w)
	}
	_ = f.SetColWidth(SheetWarnings, "A", "A", 100)

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"request_id", res.RequestID,
		"rows", len(rows),
		"warnings", len(res.Warnings),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// Flatten lists data leaves in document order with the matching confidence
// score. Scalar arrays get one row per element, all sharing the array's score.
func Flatten(data, conf jsonvalue.Value) []Row {
	var rows []Row
	flatten("", data, conf, &rows)
	return rows
}

func flatten(path string, data, conf jsonvalue.Value, rows *[]Row) {
	switch data.Kind() {
	case jsonvalue.Object:
		for _, m := range data.Members() {
			c, _ := conf.Field(m.Key)
			p := m.Key
			if path != "" {
				p = path + "." + m.Key
			}
			flatten(p, m.Value, c, rows)
		}
	case jsonvalue.Array:
		if data.Len() == 0 {
			*rows = append(*rows, Row{Path: path, Value: "[]", Confidence: score(conf)})
			return
		}
		for i, e := range data.Elements() {
			p := fmt.Sprintf("%s[%d]", path, i)
			if e.IsObject() {
				c, _ := conf.Index(i)
				flatten(p, e, c, rows)
				continue
			}
			flatten(p, e, conf, rows)
		}
	default:
		*rows = append(*rows, Row{Path: path, Value: cellValue(data), Confidence: score(conf)})
	}
}

func cellValue(v jsonvalue.Value) any {
	switch v.Kind() {
	case jsonvalue.Bool:
		b, _ := v.Bool()
		return b
	case jsonvalue.Number:
		n, _ := v.Number()
		return n
	case jsonvalue.String:
		s, _ := v.Str()
		return truncate(s, maxCellChars)
	}
	return ""
}

func score(conf jsonvalue.Value) any {
	if n, ok := conf.Number(); ok {
		return n
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
