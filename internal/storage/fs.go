package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// MetadataPattern matches note metadata files relative to the root.
const MetadataPattern = "**/*.json"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the workspace directory
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute workspace directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes workspace root: %s", rel)
	}
	return abs, nil
}

// ReadText returns the raw content of a text file.
func (f *FS) ReadText(ctx context.Context, path string) (string, error) {
	data, err := f.read(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadStructured decodes a JSON file into v. Comments and trailing commas
// left by hand edits are accepted.
func (f *FS) ReadStructured(ctx context.Context, path string, v any) (bool, error) {
	data, err := f.read(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return true, fmt.Errorf("storage: parse %s: %w", path, err)
	}
	if err := json.Unmarshal(std, v); err != nil {
		return true, fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return true, nil
}

func (f *FS) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// WriteText atomically replaces the file at path: temp file, fsync, rename.
func (f *FS) WriteText(ctx context.Context, path, text string) error {
	return f.write(ctx, path, []byte(text))
}

// WriteStructured atomically writes v as indented JSON.
func (f *FS) WriteStructured(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", path, err)
	}
	return f.write(ctx, path, append(data, '\n'))
}

func (f *FS) write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// ListMetadata returns the slash-separated paths of every metadata file,
// sorted. Hidden directories are skipped.
func (f *FS) ListMetadata(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(os.DirFS(f.root), MetadataPattern)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := matches[:0]
	for _, m := range matches {
		if Hidden(m) {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Hidden reports whether any element of the slash-separated path rel starts
// with a dot.
func Hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Delete removes a file from the workspace.
func (f *FS) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}
