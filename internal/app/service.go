// Package app orchestrates document sources, entity locators and the excerpt
// engine into the lines, entity and batch operations.
package app

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/language"
	"github.com/tyemirov/excerpt/internal/locate"
	"github.com/tyemirov/excerpt/internal/output"
	"github.com/tyemirov/excerpt/internal/source"
	"github.com/tyemirov/excerpt/internal/tokenizer"
	"github.com/tyemirov/excerpt/internal/types"
)

const (
	// DefaultRadius is the number of lines shown on each side of an entity.
	DefaultRadius = 3

	goModuleFileName  = "go.mod"
	goSourceExtension = ".go"

	fetchDocumentFormat  = "fetch %s: %w"
	locateEntityFormat   = "locate %s in %s: %w"
	renderExcerptFormat  = "render %s: %w"
	countTokensFormat    = "count tokens for %s: %w"
	logMessageRendered   = "rendered excerpt"
	logMessageDegraded   = "selection exceeded the budget on a single line; shortened it"
	logMessageModulePath = "go.mod unavailable; import-path qualified symbols will not resolve"
	logFieldFile         = "file"
	logFieldStart        = "start"
	logFieldEnd          = "end"
	logFieldLength       = "length"
	logFieldBudget       = "budget"
)

// Settings carries the rendering options shared by every operation.
type Settings struct {
	IncludeLineNumbers bool
	Budget             int
	// Language overrides the fence language detected from the file name.
	Language string
	Radius   int
	Offset   int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{Budget: excerpt.DefaultBudget, Radius: DefaultRadius}
}

// LinesRequest selects an explicit line range.
type LinesRequest struct {
	Path  string
	Start int
	End   int
}

// EntityRequest selects the lines around a named declaration.
type EntityRequest struct {
	Path   string
	Symbol string
}

// Service renders excerpts from a single document source.
type Service struct {
	documentSource source.Source
	registry       *locate.Registry
	logger         *zap.Logger
	tokenCounter   tokenizer.Counter

	modulePathMutex    sync.Mutex
	modulePathResolved bool
	modulePath         string
}

// Option customizes a Service.
type Option func(*Service)

// WithTokenCounter attaches token counts computed by counter to every excerpt,
// labelled with the counter's name.
func WithTokenCounter(counter tokenizer.Counter) Option {
	return func(service *Service) {
		service.tokenCounter = counter
	}
}

// WithRegistry replaces the default entity locator registry.
func WithRegistry(registry *locate.Registry) Option {
	return func(service *Service) {
		if registry != nil {
			service.registry = registry
		}
	}
}

// NewService creates a Service reading documents from documentSource.
func NewService(documentSource source.Source, logger *zap.Logger, options ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		documentSource: documentSource,
		registry:       locate.NewDefaultRegistry(),
		logger:         logger,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

// RenderLines renders an explicit line range. An out-of-bounds start is
// reported as *excerpt.OutOfBoundsError.
func (service *Service) RenderLines(ctx context.Context, request LinesRequest, settings Settings) (types.ExcerptOutput, error) {
	document, fetchError := service.fetch(ctx, request.Path)
	if fetchError != nil {
		return types.ExcerptOutput{}, fetchError
	}
	selection := excerpt.RangeSelection{Start: request.Start, End: request.End}
	return service.render(document, selection, settings)
}

// RenderEntity locates the symbol and renders Radius lines around it, shifted by Offset.
func (service *Service) RenderEntity(ctx context.Context, request EntityRequest, settings Settings) (types.ExcerptOutput, error) {
	document, fetchError := service.fetch(ctx, request.Path)
	if fetchError != nil {
		return types.ExcerptOutput{}, fetchError
	}
	query := locate.Query{
		Path:    request.Path,
		Content: []byte(document.Text),
		Symbol:  request.Symbol,
	}
	if strings.EqualFold(path.Ext(request.Path), goSourceExtension) {
		query.ModulePath = service.resolveModulePath(ctx)
	}
	anchorLine, locateError := service.registry.Locate(query)
	if locateError != nil {
		return types.ExcerptOutput{}, fmt.Errorf(locateEntityFormat, request.Symbol, request.Path, locateError)
	}
	selection := excerpt.AnchorSelection{AnchorLine: anchorLine, Radius: settings.Radius, Offset: settings.Offset}
	return service.render(document, selection, settings)
}

func (service *Service) fetch(ctx context.Context, documentPath string) (source.Document, error) {
	document, fetchError := service.documentSource.Fetch(ctx, documentPath)
	if fetchError != nil {
		return source.Document{}, fmt.Errorf(fetchDocumentFormat, documentPath, fetchError)
	}
	return document, nil
}

func (service *Service) render(document source.Document, selection excerpt.Selection, settings Settings) (types.ExcerptOutput, error) {
	fenceLanguage := settings.Language
	if fenceLanguage == "" {
		fenceLanguage = language.Detect(document.Path)
	}
	request := excerpt.Request{
		File:      document.Path,
		Lines:     excerpt.SplitLines(document.Text),
		Selection: selection,
		Options: excerpt.Options{
			IncludeLineNumbers: settings.IncludeLineNumbers,
			Budget:             settings.Budget,
			Language:           fenceLanguage,
		},
	}

	degraded := false
	rendered, renderError := excerpt.Render(request)
	if renderError != nil {
		var tooLarge *excerpt.SelectionTooLargeError
		if !errors.As(renderError, &tooLarge) {
			return types.ExcerptOutput{}, fmt.Errorf(renderExcerptFormat, document.Path, renderError)
		}
		var degradeError error
		rendered, degradeError = excerpt.Degrade(tooLarge)
		if degradeError != nil {
			return types.ExcerptOutput{}, fmt.Errorf(renderExcerptFormat, document.Path, degradeError)
		}
		degraded = true
		service.logger.Warn(logMessageDegraded,
			zap.String(logFieldFile, document.Path),
			zap.Int(logFieldStart, rendered.Window.ActualStart),
			zap.Int(logFieldBudget, tooLarge.Budget),
		)
	}

	link := service.documentSource.LinkTarget(document.Path, rendered.Window.ActualStart, rendered.Window.ActualEnd)
	excerptOutput := output.NewExcerptOutput(rendered, document.Revision, link)
	excerptOutput.Degraded = degraded

	if service.tokenCounter != nil {
		countResult, countError := tokenizer.CountText(service.tokenCounter, excerptOutput.Content)
		if countError != nil {
			return types.ExcerptOutput{}, fmt.Errorf(countTokensFormat, document.Path, countError)
		}
		if countResult.Counted {
			excerptOutput.Tokens = countResult.Tokens
			excerptOutput.Model = service.tokenCounter.Name()
		}
	}

	service.logger.Debug(logMessageRendered,
		zap.String(logFieldFile, document.Path),
		zap.Int(logFieldStart, rendered.Window.ActualStart),
		zap.Int(logFieldEnd, rendered.Window.ActualEnd),
		zap.Int(logFieldLength, rendered.Length()),
	)
	return excerptOutput, nil
}

// resolveModulePath reads go.mod from the source root once per Service.
func (service *Service) resolveModulePath(ctx context.Context) string {
	service.modulePathMutex.Lock()
	defer service.modulePathMutex.Unlock()
	if service.modulePathResolved {
		return service.modulePath
	}
	document, fetchError := service.documentSource.Fetch(ctx, goModuleFileName)
	if fetchError != nil {
		if ctx.Err() != nil {
			return ""
		}
		service.logger.Debug(logMessageModulePath, zap.Error(fetchError))
		service.modulePathResolved = true
		return ""
	}
	service.modulePath = locate.ModulePath([]byte(document.Text))
	service.modulePathResolved = true
	return service.modulePath
}
