// Package source fetches document text and builds links back to its origin.
package source

import (
	"context"
	"errors"
)

// ErrDocumentNotFound indicates that the requested path does not exist at the source.
var ErrDocumentNotFound = errors.New("source: document not found")

// Document is the full text of one file at one revision.
type Document struct {
	Path     string
	Revision string
	Text     string
}

// Source provides documents and deep links into them.
type Source interface {
	Fetch(ctx context.Context, path string) (Document, error)
	// LinkTarget returns a URL showing lines start through end of path.
	LinkTarget(path string, start int, end int) string
}
