package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/ui"
	"github.com/goliatone/go-errors"
)

// fileDownloader saves download buttons' content under dir.
type fileDownloader struct {
	dir    string
	logger assistant.Logger
}

func newFileDownloader(dir string, logger assistant.Logger) *fileDownloader {
	if dir == "" {
		dir = "."
	}
	return &fileDownloader{dir: dir, logger: assistant.NormalizeLogger(logger)}
}

// Download writes d to dir/<filename>. Directory components of the
// filename are dropped.
func (f *fileDownloader) Download(ctx context.Context, d ui.Download) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(strings.TrimSpace(d.Filename))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return errors.New("download needs a file name", errors.CategoryBadInput).
			WithMetadata(map[string]any{"filename": d.Filename})
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "create download directory")
	}
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, d.Content, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "write download").
			WithMetadata(map[string]any{"path": path})
	}
	f.logger.Info("saved download path=%s type=%s bytes=%d", path, d.MimeType, len(d.Content))
	return nil
}
