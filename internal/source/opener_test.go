package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter()
	r.Register("mem", OpenerFunc(func(_ context.Context, loc *Locator) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(loc.Path))), nil
	}))

	loc, _ := ParseLocator("mem:hello")
	rc, err := r.Open(context.Background(), loc)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello" {
		t.Errorf("read %q, want hello", got)
	}
}

func TestRouter_UnsupportedScheme(t *testing.T) {
	r := NewRouter()
	loc, _ := ParseLocator("content://media/1")
	if _, err := r.Open(context.Background(), loc); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Open() error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestFileOpener(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "photos"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "photos", "a.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	opener := NewFileOpener(root)
	ctx := context.Background()

	t.Run("relative path", func(t *testing.T) {
		rc, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "photos/a.jpg"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		rc.Close()
	})

	t.Run("absolute path inside root", func(t *testing.T) {
		rc, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: filepath.Join(root, "photos", "a.jpg")})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		rc.Close()
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "photos/missing.jpg"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Open() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		if _, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "photos"}); err == nil {
			t.Error("Open() on a directory succeeded")
		}
	})

	t.Run("traversal", func(t *testing.T) {
		_, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "../../etc/passwd"})
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Open() error = %v, want ErrOutsideRoot", err)
		}
	})

	t.Run("absolute path outside root", func(t *testing.T) {
		_, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "/etc/passwd"})
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Open() error = %v, want ErrOutsideRoot", err)
		}
	})

	t.Run("symlink escaping root", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "secret.jpg")
		if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(outside, filepath.Join(root, "photos", "link.jpg")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
		_, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "photos/link.jpg"})
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Open() error = %v, want ErrOutsideRoot", err)
		}
	})

	t.Run("symlinked directory escaping root", func(t *testing.T) {
		outsideDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(outsideDir, "b.jpg"), []byte("jpeg"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(outsideDir, filepath.Join(root, "elsewhere")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
		_, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "elsewhere/b.jpg"})
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Open() error = %v, want ErrOutsideRoot", err)
		}
	})

	t.Run("symlink inside root", func(t *testing.T) {
		if err := os.Symlink(filepath.Join(root, "photos", "a.jpg"), filepath.Join(root, "alias.jpg")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
		rc, err := opener.Open(ctx, &Locator{Scheme: SchemeFile, Path: "alias.jpg"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != "jpeg" {
			t.Errorf("read %q, want jpeg", got)
		}
	})
}
