// Package clipboard copies rendered excerpts to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

const copyFailedFormat = "copy excerpt to clipboard: %w"

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	writeAll func(string) error
}

// NewService constructs a clipboard Service backed by the system clipboard.
func NewService() *Service {
	return &Service{writeAll: clipboard.WriteAll}
}

// Available reports whether a clipboard utility exists on this system.
func (service *Service) Available() bool {
	return !clipboard.Unsupported
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if writeError := service.writeAll(text); writeError != nil {
		return fmt.Errorf(copyFailedFormat, writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
