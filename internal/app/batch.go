package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/output"
	"github.com/tyemirov/excerpt/internal/types"
)

const (
	entitySeparator = "#"
	rangeSeparator  = ":"
	boundSeparator  = "-"

	invalidSpecFormat  = "invalid batch specification %q: expected path:start-end or path#symbol"
	invalidBoundFormat = "invalid line number %q in batch specification %q"
)

// BatchSpec is one parsed batch entry. Symbol is set for entity entries;
// Start and End are set for line entries.
type BatchSpec struct {
	Raw    string
	Path   string
	Symbol string
	Start  int
	End    int
}

// IsEntity reports whether the spec selects a named declaration.
func (spec BatchSpec) IsEntity() bool {
	return spec.Symbol != ""
}

// ParseBatchSpec parses path:start-end, path:line or path#symbol.
func ParseBatchSpec(raw string) (BatchSpec, error) {
	trimmed := strings.TrimSpace(raw)
	if entityIndex := strings.Index(trimmed, entitySeparator); entityIndex > 0 {
		symbol := strings.TrimSpace(trimmed[entityIndex+1:])
		if symbol == "" {
			return BatchSpec{}, fmt.Errorf(invalidSpecFormat, raw)
		}
		return BatchSpec{Raw: raw, Path: trimmed[:entityIndex], Symbol: symbol}, nil
	}
	rangeIndex := strings.LastIndex(trimmed, rangeSeparator)
	if rangeIndex <= 0 || rangeIndex == len(trimmed)-1 {
		return BatchSpec{}, fmt.Errorf(invalidSpecFormat, raw)
	}
	documentPath := trimmed[:rangeIndex]
	bounds := trimmed[rangeIndex+1:]
	startText, endText, hasEnd := strings.Cut(bounds, boundSeparator)
	start, startError := strconv.Atoi(strings.TrimSpace(startText))
	if startError != nil {
		return BatchSpec{}, fmt.Errorf(invalidBoundFormat, startText, raw)
	}
	end := start
	if hasEnd {
		parsedEnd, endError := strconv.Atoi(strings.TrimSpace(endText))
		if endError != nil {
			return BatchSpec{}, fmt.Errorf(invalidBoundFormat, endText, raw)
		}
		end = parsedEnd
	}
	return BatchSpec{Raw: raw, Path: documentPath, Start: start, End: end}, nil
}

// RenderBatch renders every spec concurrently and returns one item per spec in
// input order. Per-spec failures are reported on the item; only context
// cancellation fails the whole batch.
func (service *Service) RenderBatch(ctx context.Context, specs []string, settings Settings) ([]types.BatchItem, error) {
	items := make([]types.BatchItem, len(specs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))

	for specIndex, rawSpec := range specs {
		specIndex, rawSpec := specIndex, rawSpec
		group.Go(func() error {
			if contextError := groupCtx.Err(); contextError != nil {
				return contextError
			}
			items[specIndex] = service.renderBatchItem(groupCtx, rawSpec, settings)
			return nil
		})
	}

	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return items, nil
}

func (service *Service) renderBatchItem(ctx context.Context, rawSpec string, settings Settings) types.BatchItem {
	item := types.BatchItem{Spec: rawSpec}
	spec, parseError := ParseBatchSpec(rawSpec)
	if parseError != nil {
		item.Error = parseError.Error()
		return item
	}

	var excerptOutput types.ExcerptOutput
	var renderError error
	if spec.IsEntity() {
		excerptOutput, renderError = service.RenderEntity(ctx, EntityRequest{Path: spec.Path, Symbol: spec.Symbol}, settings)
	} else {
		excerptOutput, renderError = service.RenderLines(ctx, LinesRequest{Path: spec.Path, Start: spec.Start, End: spec.End}, settings)
	}
	if renderError != nil {
		var boundsError *excerpt.OutOfBoundsError
		if errors.As(renderError, &boundsError) {
			failover := output.NewFailoverOutput(spec.Path, boundsError)
			item.Failover = &failover
			return item
		}
		item.Error = renderError.Error()
		return item
	}
	item.Excerpt = &excerptOutput
	return item
}
