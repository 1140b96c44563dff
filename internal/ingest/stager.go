package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/doc-extractor/constants"
	"github.com/joseph-ayodele/doc-extractor/internal/common"
)

const stagedPrefix = "doc-"

// Stager writes uploads into Dir under random names and hands back a
// StagedDocument the caller must Release.
type Stager struct {
	Dir      string
	MaxBytes int64
	Logger   *slog.Logger
}

func NewStager(cfg common.UploadConfig, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{Dir: cfg.Dir, MaxBytes: cfg.MaxBytes(), Logger: logger}
}

// Stage copies r to disk, hashing as it goes. An empty or generic declared
// type is replaced by content sniffing. Oversized and disallowed documents are
// removed before returning an error.
func (s *Stager) Stage(ctx context.Context, name, declaredMIME string, r io.Reader) (*StagedDocument, error) {
	logger := common.LoggerFromContext(ctx, s.Logger)
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, common.Internal("Failed to prepare upload directory", err)
	}

	path := filepath.Join(s.Dir, stagedPrefix+uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, common.Internal("Failed to stage upload", err)
	}

	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	h := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(f, h), src)
	closeErr := f.Close()

	doc := &StagedDocument{path: path, name: filepath.Base(name), size: n}
	fail := func(err error) (*StagedDocument, error) {
		if rerr := doc.Release(); rerr != nil {
			logger.Warn("ingest.stage.cleanup_failed", "path", path, "error", rerr)
		}
		return nil, err
	}

	if err := errors.Join(copyErr, closeErr); err != nil {
		return fail(common.Internal("Failed to stage upload", err))
	}
	if s.MaxBytes > 0 && n > s.MaxBytes {
		return fail(common.TooLarge(fmt.Sprintf("File size too large. Please select a file smaller than %dMB.", s.MaxBytes>>20)))
	}
	doc.hashHex = hex.EncodeToString(h.Sum(nil))

	mt := constants.NormalizeMime(declaredMIME)
	if mt == "" || mt == "application/octet-stream" {
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			return fail(common.Internal("Failed to detect file type", err))
		}
		mt = constants.NormalizeMime(detected.String())
		logger.Debug("ingest.stage.sniffed", "declared", declaredMIME, "detected", mt)
	}
	doc.mimeType = mt
	if !constants.IsSupportedMime(mt) {
		return fail(common.BadRequest("Invalid file type. Only images, PDFs, and text files are allowed.", fmt.Errorf("unsupported mime type %q", mt)))
	}

	logger.Info("ingest.stage.ok",
		"file", doc.name,
		"mime", doc.mimeType,
		"bytes", doc.size,
		"sha256", doc.hashHex,
	)
	return doc, nil
}

// Sweep removes staged files older than maxAge, e.g. left behind by a crash.
// It returns how many files were removed.
func (s *Stager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read upload dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), stagedPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		common.LoggerFromContext(context.Background(), s.Logger).Info("ingest.sweep", "dir", s.Dir, "removed", removed)
	}
	return removed, errors.Join(errs...)
}
