package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/clausefind/internal/ingest"
	"go.uber.org/zap"
)

// DocumentIngester is the part of ingest.Ingester the watcher drives.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, path string) (*ingest.Result, error)
}

// IngestFunc returns an onIngest callback that runs the document pipeline for each
// path with a per-file timeout. Failures are logged; the watcher keeps running.
// Because documents are keyed by path, a modified file that was already ingested is
// skipped.
func IngestFunc(ctx context.Context, ing DocumentIngester, timeout time.Duration, logger *zap.Logger) func(path string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(path string) {
		fileCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := ing.IngestDocument(fileCtx, path)
		switch {
		case errors.Is(err, ingest.ErrNoContent):
			logger.Info("skipping file without text", zap.String("path", path))
		case err != nil:
			logger.Error("ingest failed", zap.String("path", path), zap.Error(err))
		case res.Skipped:
			logger.Debug("file already ingested", zap.String("path", path))
		}
	}
}
