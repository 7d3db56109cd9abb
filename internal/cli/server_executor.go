package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tyemirov/excerpt/internal/app"
	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/output"
	"github.com/tyemirov/excerpt/internal/services/server"
	"github.com/tyemirov/excerpt/internal/types"
)

const (
	linesCapabilityDescription  = "Render an explicit line range of a file within the character budget"
	entityCapabilityDescription = "Render the lines around a named declaration within the character budget"

	decodePayloadFormat  = "decode %s request: %w"
	missingPathMessage   = "path is required"
	missingSymbolMessage = "symbol is required"
)

// renderPayload carries the per-request overrides of the server defaults.
type renderPayload struct {
	Format      string `json:"format"`
	Budget      *int   `json:"budget"`
	LineNumbers *bool  `json:"lineNumbers"`
	Language    string `json:"language"`
}

type linesPayload struct {
	renderPayload
	Path  string `json:"path"`
	Start int    `json:"start"`
	End   *int   `json:"end"`
}

type entityPayload struct {
	renderPayload
	Path   string `json:"path"`
	Symbol string `json:"symbol"`
	Around *int   `json:"around"`
	Offset *int   `json:"offset"`
}

func serverCapabilities() []server.Capability {
	return []server.Capability{
		{Name: types.CommandLines, Description: linesCapabilityDescription},
		{Name: types.CommandEntity, Description: entityCapabilityDescription},
	}
}

func serverCommandExecutors(service *app.Service, defaults resolvedOptions) map[string]server.CommandExecutor {
	return map[string]server.CommandExecutor{
		types.CommandLines: server.CommandExecutorFunc(func(ctx context.Context, request server.CommandRequest) (server.CommandResponse, error) {
			return executeLinesCommand(ctx, service, defaults, request)
		}),
		types.CommandEntity: server.CommandExecutorFunc(func(ctx context.Context, request server.CommandRequest) (server.CommandResponse, error) {
			return executeEntityCommand(ctx, service, defaults, request)
		}),
	}
}

func executeLinesCommand(ctx context.Context, service *app.Service, defaults resolvedOptions, request server.CommandRequest) (server.CommandResponse, error) {
	var payload linesPayload
	if decodeError := decodePayload(request, types.CommandLines, &payload); decodeError != nil {
		return server.CommandResponse{}, decodeError
	}
	if strings.TrimSpace(payload.Path) == "" {
		return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, errors.New(missingPathMessage))
	}
	if payload.Start < 1 {
		return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, errors.New(invalidStartMessage))
	}
	format, settings, overrideError := payload.apply(defaults)
	if overrideError != nil {
		return server.CommandResponse{}, overrideError
	}
	endLine := payload.Start
	if payload.End != nil {
		endLine = *payload.End
	}
	result, renderError := service.RenderLines(ctx, app.LinesRequest{Path: payload.Path, Start: payload.Start, End: endLine}, settings)
	return commandResponse(format, result, renderError)
}

func executeEntityCommand(ctx context.Context, service *app.Service, defaults resolvedOptions, request server.CommandRequest) (server.CommandResponse, error) {
	var payload entityPayload
	if decodeError := decodePayload(request, types.CommandEntity, &payload); decodeError != nil {
		return server.CommandResponse{}, decodeError
	}
	if strings.TrimSpace(payload.Path) == "" {
		return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, errors.New(missingPathMessage))
	}
	if strings.TrimSpace(payload.Symbol) == "" {
		return server.CommandResponse{}, server.NewCommandExecutionError(http.StatusBadRequest, errors.New(missingSymbolMessage))
	}
	format, settings, overrideError := payload.apply(defaults)
	if overrideError != nil {
		return server.CommandResponse{}, overrideError
	}
	if payload.Around != nil {
		settings.Radius = *payload.Around
	}
	if payload.Offset != nil {
		settings.Offset = *payload.Offset
	}
	result, renderError := service.RenderEntity(ctx, app.EntityRequest{Path: payload.Path, Symbol: payload.Symbol}, settings)
	return commandResponse(format, result, renderError)
}

func decodePayload(request server.CommandRequest, commandName string, target interface{}) error {
	if len(request.Payload) == 0 {
		return nil
	}
	if decodeError := json.Unmarshal(request.Payload, target); decodeError != nil {
		return server.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(decodePayloadFormat, commandName, decodeError))
	}
	return nil
}

func (payload renderPayload) apply(defaults resolvedOptions) (string, app.Settings, error) {
	format := defaults.format
	if payload.Format != "" {
		format = strings.ToLower(payload.Format)
	}
	if !isSupportedFormat(format) {
		return "", app.Settings{}, server.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(invalidFormatMessage, format))
	}
	settings := defaults.settings
	if payload.Budget != nil {
		settings.Budget = *payload.Budget
	}
	if payload.LineNumbers != nil {
		settings.IncludeLineNumbers = *payload.LineNumbers
	}
	if payload.Language != "" {
		settings.Language = payload.Language
	}
	return format, settings, nil
}

func commandResponse(format string, result types.ExcerptOutput, renderError error) (server.CommandResponse, error) {
	if renderError != nil {
		return server.CommandResponse{}, renderError
	}
	rendered, formatError := output.RenderExcerpt(format, result)
	if formatError != nil {
		return server.CommandResponse{}, formatError
	}
	response := server.CommandResponse{
		Output:      rendered,
		Format:      format,
		Link:        result.Link,
		ActualStart: result.Actual.Start,
		ActualEnd:   result.Actual.End,
	}
	if result.Degraded {
		response.Warnings = []string{excerpt.NoteLineShortened}
	}
	return response, nil
}
