package proc

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conveyorhq/conveyor/internal/model"
)

// NewGzip compresses the item to a <path>.gz next to it. The level follows
// compress/gzip, invalid values fall back to the default compression.
func NewGzip(level int) Func {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	return func(ctx context.Context, item model.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := string(item)
		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("gzip open: %w", err)
		}
		defer func() {
			_ = src.Close()
		}()

		info, err := src.Stat()
		if err != nil {
			return fmt.Errorf("gzip stat %s: %w", path, err)
		}

		dst, err := os.Create(path + ".gz")
		if err != nil {
			return fmt.Errorf("gzip create: %w", err)
		}

		zw, err := gzip.NewWriterLevel(dst, level)
		if err != nil {
			_ = dst.Close()
			return fmt.Errorf("gzip writer: %w", err)
		}
		zw.Name = filepath.Base(path)
		zw.ModTime = info.ModTime()

		if _, err := io.Copy(zw, src); err != nil {
			_ = zw.Close()
			_ = dst.Close()
			return fmt.Errorf("gzip compress %s: %w", path, err)
		}
		if err := zw.Close(); err != nil {
			_ = dst.Close()
			return fmt.Errorf("gzip flush %s: %w", path, err)
		}
		if err := dst.Close(); err != nil {
			return fmt.Errorf("gzip close: %w", err)
		}
		return nil
	}
}
