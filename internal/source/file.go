package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"imagestream/internal/filesystem"
)

// ErrOutsideRoot is returned for file locators that escape the media root.
var ErrOutsideRoot = errors.New("path outside media root")

// FileOpener opens file locators below Root. Relative paths are resolved
// against Root; absolute paths must already lie inside it.
type FileOpener struct {
	Root  string
	Retry filesystem.RetryConfig
}

// NewFileOpener creates a file opener rooted at root.
func NewFileOpener(root string) *FileOpener {
	return &FileOpener{Root: root, Retry: filesystem.DefaultRetryConfig()}
}

// Resolve maps a locator path to an absolute path inside Root. Symlinks
// are followed, and the target must also lie inside Root. A path that does
// not exist is returned as is so that Open reports ErrNotFound.
func (f *FileOpener) Resolve(p string) (string, error) {
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return "", fmt.Errorf("resolve media root: %w", err)
	}

	full := p
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	if !within(root, full) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}

	resolved, err := filepath.EvalSymlinks(full)
	if errors.Is(err, fs.ErrNotExist) {
		return full, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve media root: %w", err)
	}
	if !within(realRoot, resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return resolved, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Open implements Opener.
func (f *FileOpener) Open(ctx context.Context, loc *Locator) (io.ReadCloser, error) {
	path, err := f.Resolve(loc.Path)
	if err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(ctx, path, f.Retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.Path)
		}
		return nil, fmt.Errorf("stat %s: %w", loc.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory", loc.Path)
	}

	file, err := filesystem.OpenWithRetry(ctx, path, f.Retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.Path)
		}
		return nil, fmt.Errorf("open %s: %w", loc.Path, err)
	}
	return file, nil
}
