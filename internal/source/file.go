package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileScheme            = "file"
	lineAnchorFormat      = "L%d-L%d"
	workingTreeRevision   = "working-tree"
	escapesRootFormat     = "path %s escapes root %s"
	readDocumentFormat    = "read %s: %w"
	missingDocumentFormat = "%w: %s"
)

// FileSource reads documents from a directory on disk.
type FileSource struct {
	root string
}

// NewFileSource creates a FileSource rooted at root.
func NewFileSource(root string) FileSource {
	return FileSource{root: root}
}

// Fetch reads path relative to the root.
//
// #nosec G304
func (fileSource FileSource) Fetch(ctx context.Context, path string) (Document, error) {
	if contextError := ctx.Err(); contextError != nil {
		return Document{}, contextError
	}
	absolutePath, resolveError := fileSource.resolve(path)
	if resolveError != nil {
		return Document{}, resolveError
	}
	content, readError := os.ReadFile(absolutePath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Document{}, fmt.Errorf(missingDocumentFormat, ErrDocumentNotFound, path)
		}
		return Document{}, fmt.Errorf(readDocumentFormat, path, readError)
	}
	return Document{Path: path, Revision: workingTreeRevision, Text: string(content)}, nil
}

// LinkTarget returns a file URL with a line range fragment.
func (fileSource FileSource) LinkTarget(path string, start int, end int) string {
	absolutePath, resolveError := fileSource.resolve(path)
	if resolveError != nil {
		absolutePath = path
	}
	link := url.URL{
		Scheme:   fileScheme,
		Path:     filepath.ToSlash(absolutePath),
		Fragment: fmt.Sprintf(lineAnchorFormat, start, end),
	}
	return link.String()
}

func (fileSource FileSource) resolve(path string) (string, error) {
	root := fileSource.root
	if root == "" {
		root = "."
	}
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return "", absoluteError
	}
	joinedPath := filepath.Clean(filepath.Join(absoluteRoot, filepath.FromSlash(path)))
	if joinedPath != absoluteRoot && !strings.HasPrefix(joinedPath, absoluteRoot+string(filepath.Separator)) {
		return "", fmt.Errorf(escapesRootFormat, path, absoluteRoot)
	}
	return joinedPath, nil
}

var _ Source = FileSource{}
