// Package storage implements the note file collaborators: raw Markdown
// content files and structured JSON metadata files under one workspace root.
package storage

import "context"

// Provider is the interface for workspace file operations. All paths are
// relative to the workspace root.
type Provider interface {
	// ReadText returns the raw content of a text file.
	ReadText(ctx context.Context, path string) (string, error)
	// ReadStructured decodes a JSON file into v. found is false when the
	// file does not exist; that is not an error.
	ReadStructured(ctx context.Context, path string, v any) (found bool, err error)
	// WriteText atomically replaces the file at path.
	WriteText(ctx context.Context, path, text string) error
	// WriteStructured atomically writes v as indented JSON.
	WriteStructured(ctx context.Context, path string, v any) error
	// ListMetadata returns the paths of every metadata (.json) file.
	ListMetadata(ctx context.Context) ([]string, error)
	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error
	// Root returns the absolute workspace directory.
	Root() string
}
