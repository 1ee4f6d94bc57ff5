package walk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conveyorhq/conveyor/internal/model"
	"github.com/conveyorhq/conveyor/internal/walk"

	"github.com/stretchr/testify/require"
)

func fixtureTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755))
	for _, name := range []string{
		"b.txt",
		"a.txt",
		filepath.Join("sub", "c.txt"),
		filepath.Join("sub", "deep", "d.txt"),
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	return dir
}

func TestExpandRecurse(t *testing.T) {
	t.Parallel()

	dir := fixtureTree(t)
	got, err := walk.Expand(t.Context(), []string{dir}, true)
	require.NoError(t, err)

	// fs.WalkDir visits entries in lexical order
	want := []model.Item{
		model.Item(filepath.Join(dir, "a.txt")),
		model.Item(filepath.Join(dir, "b.txt")),
		model.Item(filepath.Join(dir, "sub", "c.txt")),
		model.Item(filepath.Join(dir, "sub", "deep", "d.txt")),
	}
	require.Equal(t, want, got)
}

func TestExpandSkipsDirWithoutRecurse(t *testing.T) {
	t.Parallel()

	dir := fixtureTree(t)
	single := filepath.Join(dir, "a.txt")

	got, err := walk.Expand(t.Context(), []string{single, dir}, false)
	require.NoError(t, err)
	require.Equal(t, []model.Item{model.Item(single)}, got)
}

func TestExpandKeepsArgumentOrder(t *testing.T) {
	t.Parallel()

	dir := fixtureTree(t)
	b := filepath.Join(dir, "b.txt")
	a := filepath.Join(dir, "a.txt")

	got, err := walk.Expand(t.Context(), []string{b, a}, false)
	require.NoError(t, err)
	require.Equal(t, []model.Item{model.Item(b), model.Item(a)}, got)
}

func TestExpandMissingPath(t *testing.T) {
	t.Parallel()

	_, err := walk.Expand(t.Context(), []string{filepath.Join(t.TempDir(), "nope")}, false)
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}
