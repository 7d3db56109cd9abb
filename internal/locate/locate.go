// Package locate resolves named entities in source files to anchor lines.
package locate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ErrEntityNotFound indicates that no locator could find the requested entity.
var ErrEntityNotFound = errors.New("locate: entity not found")

// ErrUnsupportedFile indicates that no locator handles the file's extension.
var ErrUnsupportedFile = errors.New("locate: unsupported file type")

const (
	unresolvedEntityFormat = "%w: %s in %s"
	unsupportedFileFormat  = "%w: %s"
	memberSeparator        = "."
	alternateSeparator     = "#"
)

// Query describes an entity lookup within one file.
type Query struct {
	Path    string
	Content []byte
	Symbol  string
	// ModulePath is the Go module path of the repository, when known.
	ModulePath string
}

// Locator finds the 1-indexed line declaring an entity.
type Locator interface {
	Extensions() []string
	Locate(query Query) (int, error)
}

// Registry dispatches queries to locators by file extension.
type Registry struct {
	extensionToLocator map[string]Locator
}

// NewRegistry creates a Registry for the provided locators. Nil locators are skipped.
func NewRegistry(locators ...Locator) *Registry {
	extensionToLocator := map[string]Locator{}
	for _, locator := range locators {
		if locator == nil {
			continue
		}
		for _, extension := range locator.Extensions() {
			extensionToLocator[strings.ToLower(extension)] = locator
		}
	}
	return &Registry{extensionToLocator: extensionToLocator}
}

// NewDefaultRegistry registers every locator available in this build.
func NewDefaultRegistry() *Registry {
	return NewRegistry(
		NewGoLocator(),
		NewJavaScriptLocator(),
		NewTypeScriptLocator(),
		NewPythonLocator(),
	)
}

// Locate resolves the query with the locator registered for its extension.
func (registry *Registry) Locate(query Query) (int, error) {
	extension := strings.ToLower(filepath.Ext(query.Path))
	locator, found := registry.extensionToLocator[extension]
	if !found {
		return 0, fmt.Errorf(unsupportedFileFormat, ErrUnsupportedFile, query.Path)
	}
	normalizedQuery := query
	normalizedQuery.Symbol = strings.ReplaceAll(strings.TrimSpace(query.Symbol), alternateSeparator, memberSeparator)
	if normalizedQuery.Symbol == "" {
		return 0, fmt.Errorf(unresolvedEntityFormat, ErrEntityNotFound, query.Symbol, query.Path)
	}
	return locator.Locate(normalizedQuery)
}

// Supports reports whether a locator is registered for the file's extension.
func (registry *Registry) Supports(path string) bool {
	_, found := registry.extensionToLocator[strings.ToLower(filepath.Ext(path))]
	return found
}

// ModulePath extracts the module path from go.mod content, or returns an empty string.
func ModulePath(goModContent []byte) string {
	return modfile.ModulePath(goModContent)
}

func notFound(query Query) error {
	return fmt.Errorf(unresolvedEntityFormat, ErrEntityNotFound, query.Symbol, query.Path)
}
