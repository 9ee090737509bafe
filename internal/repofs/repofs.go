// Package repofs implements the repository file collaborator over a local
// directory. All operations are confined to the configured root.
package repofs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

const readConcurrency = 8

// LocalStore reads and writes repository files relative to a fixed root.
type LocalStore struct {
	absRoot string
}

// New locks all future operations to the given root directory. The root is
// resolved to an absolute, symlink-free directory.
func New(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("repofs: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("repofs: root is not a directory")
	}
	return &LocalStore{absRoot: abs}, nil
}

// Root returns the absolute repository root.
func (s *LocalStore) Root() string {
	return s.absRoot
}

// ReadAll reads the named files concurrently. Absent files are omitted from
// the result; any other read failure aborts the batch.
func (s *LocalStore) ReadAll(ctx context.Context, names []string) (map[string]string, error) {
	contents := make(map[string]string, len(names))
	var mu sync.Mutex
	var firstErr error
	sem := make(chan struct{}, readConcurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			p, err := s.resolve(n)
			if err == nil {
				var data []byte
				data, err = os.ReadFile(p)
				if err == nil {
					mu.Lock()
					contents[n] = string(data)
					mu.Unlock()
					return
				}
			}
			if os.IsNotExist(err) {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return contents, nil
}

// Write replaces the content of name, creating parent directories.
func (s *LocalStore) Write(ctx context.Context, name string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(content), 0o644)
}

// FindUp searches for fileName in the directory of start and each ancestor
// up to the repository root.
func (s *LocalStore) FindUp(start string, fileName string) (string, bool) {
	dir := path.Dir(start)
	for {
		candidate := fileName
		if dir != "." {
			candidate = path.Join(dir, fileName)
		}
		if p, err := s.resolve(candidate); err == nil {
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
		if dir == "." || dir == "/" {
			return "", false
		}
		dir = path.Dir(dir)
	}
}

// resolve maps a slash-separated repository path to an absolute filesystem
// path, rejecting escapes from the root.
func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" {
		return "", errors.New("repofs: empty path")
	}
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("repofs: path escapes root: %s", name)
	}
	return filepath.Join(s.absRoot, filepath.FromSlash(clean)), nil
}
