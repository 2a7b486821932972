package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS is the local-disk Store driver: one file per key, with the colon
// namespace separators mapped to directories. Used for development and the
// object-storage-like backing medium.
type FS struct {
	dir string
}

func NewFS(dir string) *FS {
	return &FS{dir: dir}
}

func (s *FS) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(strings.ReplaceAll(key, ":", "/")))
}

func (s *FS) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (s *FS) Set(_ context.Context, key string, value []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	// Write-then-rename so readers never observe a torn value.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *FS) Delete(_ context.Context, key string) (bool, error) {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

func (s *FS) Keys(_ context.Context, prefix string) ([]string, error) {
	root := s.dir
	if prefix != "" {
		root = s.path(prefix)
	}

	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.SkipAll
		}
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		keys = append(keys, strings.ReplaceAll(filepath.ToSlash(rel), "/", ":"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *FS) GetItems(ctx context.Context, keys []string) ([]Item, error) {
	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		value, err := s.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Key: key, Value: value})
	}
	return items, nil
}
