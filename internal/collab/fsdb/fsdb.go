// Package fsdb implements runtime.FilesystemQuerier against the local
// filesystem: a regex-filtered, optionally recursive directory walk, a
// single-file probe, and an M3U8 playlist reader.
package fsdb

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/muss-lang/muss/internal/runtime"
)

// Querier is a runtime.FilesystemQuerier backed by os/path/filepath.
type Querier struct{}

// New returns a ready-to-use filesystem querier; it holds no state.
func New() *Querier { return &Querier{} }

// Raw walks root (to depth, or unlimited when depth < 0), filtering entries
// whose name matches regex (empty matches everything), and returns every
// match as an Item wrapped in the fallthrough in-memory vec iterator.
// recursive controls whether subdirectories are descended into at all; when
// false only root's direct children are considered regardless of depth.
func (q *Querier) Raw(root string, depth int, regex string, recursive bool) (runtime.Op, error) {
	var re *regexp.Regexp
	if regex != "" {
		compiled, err := regexp.Compile(regex)
		if err != nil {
			return nil, fmt.Errorf("fsdb: invalid regex %q: %w", regex, err)
		}
		re = compiled
	}

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))
	var items []runtime.Item

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			if depth >= 0 {
				cur := strings.Count(filepath.Clean(path), string(filepath.Separator))
				if cur-rootDepth > depth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if re != nil && !re.MatchString(d.Name()) {
			return nil
		}
		item, err := probe(path)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("fsdb: walking %q: %w", root, walkErr)
	}
	return runtime.NewItemSliceOp(items), nil
}

// Single stats one file and returns it as an Item. hint, when non-empty,
// is stored as the item's "hint" field (a caller-supplied classification
// such as a source directory alias).
func (q *Querier) Single(path string, hint string) (runtime.Item, error) {
	item, err := probe(path)
	if err != nil {
		return runtime.Item{}, fmt.Errorf("fsdb: probing %q: %w", path, err)
	}
	if hint != "" {
		item.SetField("hint", runtime.StringVal(hint))
	}
	return item, nil
}

// probe builds an Item describing a single on-disk file: its path, base
// name, extension and size, the fields a filter/sort block can key off of.
func probe(path string) (runtime.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return runtime.Item{}, err
	}
	item := runtime.NewItem()
	item.SetField("filename", runtime.StringVal(path))
	item.SetField("basename", runtime.StringVal(filepath.Base(path)))
	item.SetField("ext", runtime.StringVal(strings.TrimPrefix(filepath.Ext(path), ".")))
	item.SetField("size", runtime.IntVal(info.Size()))
	return item, nil
}

// ReadPlaylist reads an M3U/M3U8 file: one path per non-comment,
// non-blank line, relative entries resolved against the playlist's own
// directory the way most M3U consumers do.
func (q *Querier) ReadPlaylist(path string) (runtime.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fsdb: opening playlist %q: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var items []runtime.Item
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry := line
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		item, err := probe(entry)
		if err != nil {
			return nil, fmt.Errorf("fsdb: reading playlist entry %q: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fsdb: reading playlist %q: %w", path, err)
	}
	return runtime.NewItemSliceOp(items), nil
}
