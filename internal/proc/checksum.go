package proc

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/conveyorhq/conveyor/internal/model"
)

// Checksum hashes the item with SHA-256 and writes the digest to a
// <path>.sha256 sidecar in the format sha256sum(1) verifies with -c.
func Checksum(ctx context.Context, item model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := string(item)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("checksum open: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("checksum read %s: %w", path, err)
	}

	line := fmt.Sprintf("%x  %s\n", h.Sum(nil), filepath.Base(path))
	if err := os.WriteFile(path+".sha256", []byte(line), 0o644); err != nil {
		return fmt.Errorf("checksum write: %w", err)
	}
	return nil
}
