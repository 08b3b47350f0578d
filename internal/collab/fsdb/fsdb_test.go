package fsdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muss-lang/muss/internal/runtime"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestQuerierRawNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "x")
	writeFile(t, filepath.Join(dir, "sub", "c.mp3"), "x")

	q := New()
	op, err := q.Raw(dir, -1, `\.mp3$`, false)
	require.NoError(t, err)

	names := drainFilenames(t, op)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.mp3")}, names)
}

func TestQuerierRawRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), "x")
	writeFile(t, filepath.Join(dir, "sub", "c.mp3"), "x")

	q := New()
	op, err := q.Raw(dir, -1, `\.mp3$`, true)
	require.NoError(t, err)

	names := drainFilenames(t, op)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.mp3"),
		filepath.Join(dir, "sub", "c.mp3"),
	}, names)
}

func TestQuerierRawDepthLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), "x")
	writeFile(t, filepath.Join(dir, "sub", "c.mp3"), "x")
	writeFile(t, filepath.Join(dir, "sub", "deeper", "d.mp3"), "x")

	q := New()
	op, err := q.Raw(dir, 1, `\.mp3$`, true)
	require.NoError(t, err)

	names := drainFilenames(t, op)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.mp3"),
		filepath.Join(dir, "sub", "c.mp3"),
	}, names)
}

func TestQuerierSingle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	writeFile(t, path, "hello")

	q := New()
	item, err := q.Single(path, "library")
	require.NoError(t, err)

	name, ok := item.Field("filename")
	require.True(t, ok)
	s, _ := name.Str()
	assert.Equal(t, path, s)

	hint, ok := item.Field("hint")
	require.True(t, ok)
	s, _ = hint.Str()
	assert.Equal(t, "library", s)

	ext, _ := item.Field("ext")
	s, _ = ext.Str()
	assert.Equal(t, "mp3", s)
}

func TestQuerierReadPlaylist(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), "x")
	writeFile(t, filepath.Join(dir, "b.mp3"), "x")

	playlist := filepath.Join(dir, "list.m3u8")
	writeFile(t, playlist, "#EXTM3U\n# comment\na.mp3\n\nb.mp3\n")

	q := New()
	op, err := q.ReadPlaylist(playlist)
	require.NoError(t, err)

	names := drainFilenames(t, op)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.mp3"),
		filepath.Join(dir, "b.mp3"),
	}, names)
}

func drainFilenames(t *testing.T, op runtime.Op) []string {
	t.Helper()
	op.Enter(&runtime.Context{})
	var names []string
	for {
		res, ok := op.Next()
		if !ok {
			break
		}
		require.False(t, res.IsErr())
		v, found := res.Item.Field("filename")
		require.True(t, found)
		s, _ := v.Str()
		names = append(names, s)
	}
	return names
}
