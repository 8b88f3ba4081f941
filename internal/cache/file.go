package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type FileCache struct {
	Dir string
	// guards PutIfNoneMatch check-then-write within this process
	mu sync.Mutex
}

var _ ListCache = (*FileCache)(nil)

func NewFileCache(dir string) *FileCache {
	return &FileCache{Dir: dir}
}

func (fc *FileCache) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(fc.Dir, cleaned), nil
}

func (fc *FileCache) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := fc.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (fc *FileCache) Put(_ context.Context, key, value string, opts PutOptions) error {
	p, err := fc.path(key)
	if err != nil {
		return err
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Create parent directories if they don't exist
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	if opts.Condition == PutIfNoneMatch {
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				return ErrAlreadyExists
			}
			return err
		}
		if _, err := io.WriteString(f, value); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	// write then rename so readers never see a half-written record
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (fc *FileCache) Delete(_ context.Context, key string) error {
	p, err := fc.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (fc *FileCache) List(_ context.Context, prefix string, _ string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(fc.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(fc.Dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
