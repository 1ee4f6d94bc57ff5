// Package walk expands the caller's path list into the ordered item list a
// batch run is seeded with.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conveyorhq/conveyor/internal/model"
)

// Expand resolves paths into work items, preserving the given order.
// Regular files are taken as-is. Directories contribute every regular file
// under them in deterministic walk order when recurse is on; otherwise they
// are skipped with a warning. A path that cannot be stat'd is an error, the
// caller should not silently lose items it asked for.
func Expand(ctx context.Context, paths []string, recurse bool) ([]model.Item, error) {
	var ret []model.Item
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("expanding items: %w", err)
		}

		if info.Mode().IsRegular() {
			ret = append(ret, model.Item(path))
			continue
		}

		if !info.IsDir() {
			slog.WarnContext(ctx, "skipping non-regular file", "path", path)
			continue
		}
		if !recurse {
			slog.WarnContext(ctx, "skipping directory, items.recurse is off", "path", path)
			continue
		}

		root, err := os.OpenRoot(path)
		if err != nil {
			return nil, fmt.Errorf("opening directory %s: %w", path, err)
		}
		for p, err := range Files(ctx, root.FS(), path) {
			if err != nil {
				slog.WarnContext(ctx, "skipping unreadable entry", "path", p, "error", err)
				continue
			}
			ret = append(ret, model.Item(p))
		}
		_ = root.Close()
	}
	return ret, nil
}

// Files recursively walks the filesystem rooted at root and yields the path
// of every regular file found, prefixed with name so items stay addressable
// outside the root. It does not follow symlinks.
func Files(ctx context.Context, root fs.FS, name string) iter.Seq2[string, error] {
	if root == nil {
		panic("root is nil")
	}

	return func(yield func(string, error) bool) {
		fn := func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			abspath := filepath.Join(name, path)
			if err != nil {
				if !yield(abspath, err) {
					return fs.SkipAll
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				if !yield(abspath, err) {
					return fs.SkipAll
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if !yield(abspath, nil) {
				return fs.SkipAll
			}
			return nil
		}
		_ = fs.WalkDir(root, ".", fn)
	}
}
