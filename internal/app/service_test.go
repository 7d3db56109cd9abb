package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tyemirov/excerpt/internal/app"
	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/locate"
	"github.com/tyemirov/excerpt/internal/source"
	"github.com/tyemirov/excerpt/internal/types"
)

const renderGoSource = `package render

import "strings"

// Renderer joins parts.
type Renderer struct {
	Separator string
}

// Render joins the parts with the separator.
func (renderer Renderer) Render(parts []string) string {
	return strings.Join(parts, renderer.Separator)
}
`

func writeRepositoryFile(t *testing.T, rootDirectory string, relativePath string, content string) {
	t.Helper()
	absolutePath := filepath.Join(rootDirectory, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(absolutePath, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", relativePath, err)
	}
}

func newTestService(t *testing.T) *app.Service {
	t.Helper()
	rootDirectory := t.TempDir()
	writeRepositoryFile(t, rootDirectory, "go.mod", "module example.com/tool\n\ngo 1.24\n")
	writeRepositoryFile(t, rootDirectory, "internal/render/render.go", renderGoSource)
	writeRepositoryFile(t, rootDirectory, "long.txt", strings.Repeat("x", 500)+"\n")
	numbered := make([]string, 0, 20)
	for lineNumber := 1; lineNumber <= 20; lineNumber++ {
		numbered = append(numbered, "line "+strings.Repeat("=", lineNumber))
	}
	writeRepositoryFile(t, rootDirectory, "numbered.txt", strings.Join(numbered, "\n"))
	return app.NewService(source.NewFileSource(rootDirectory), nil, app.WithRegistry(locate.NewRegistry(locate.NewGoLocator())))
}

func TestRenderLines(t *testing.T) {
	service := newTestService(t)
	result, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "internal/render/render.go", Start: 5, End: 8}, app.DefaultSettings())
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	expectedBody := []string{"// Renderer joins parts.", "type Renderer struct {", "\tSeparator string", "}"}
	if diff := cmp.Diff(expectedBody, result.Body); diff != "" {
		t.Fatalf("unexpected body (-want +got):\n%s", diff)
	}
	if result.Language != "go" {
		t.Fatalf("expected go fence language, got %q", result.Language)
	}
	if !strings.HasSuffix(result.Link, "/internal/render/render.go#L5-L8") {
		t.Fatalf("unexpected link %s", result.Link)
	}
	if result.Revision == "" {
		t.Fatalf("expected revision from the file source")
	}
}

func TestRenderLinesOutOfBounds(t *testing.T) {
	service := newTestService(t)
	_, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "numbered.txt", Start: 40, End: 45}, app.DefaultSettings())
	var boundsError *excerpt.OutOfBoundsError
	if !errors.As(err, &boundsError) {
		t.Fatalf("expected OutOfBoundsError, got %v", err)
	}
	if boundsError.Start != 40 || boundsError.TotalLines != 20 {
		t.Fatalf("unexpected bounds error %+v", boundsError)
	}
}

func TestRenderLinesMissingDocument(t *testing.T) {
	service := newTestService(t)
	_, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "missing.go", Start: 1, End: 2}, app.DefaultSettings())
	if !errors.Is(err, source.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRenderLinesLinkUsesTrimmedRange(t *testing.T) {
	service := newTestService(t)
	settings := app.DefaultSettings()
	settings.Budget = 120
	result, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "numbered.txt", Start: 1, End: 20}, settings)
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	if result.Actual.End >= 20 || result.Actual.Start != 1 {
		t.Fatalf("expected bottom trim, got %+v", result.Actual)
	}
	if len([]rune(result.Content)) > 120 {
		t.Fatalf("content exceeds budget: %d", len([]rune(result.Content)))
	}
	if !strings.HasSuffix(result.Link, "#L1-L"+strconv.Itoa(result.Actual.End)) {
		t.Fatalf("link %s does not match actual range %+v", result.Link, result.Actual)
	}
}

func TestRenderLinesDegradesOversizedLine(t *testing.T) {
	service := newTestService(t)
	settings := app.DefaultSettings()
	settings.Budget = 200
	result, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "long.txt", Start: 1, End: 1}, settings)
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded excerpt")
	}
	if length := len([]rune(result.Content)); length > 200 {
		t.Fatalf("degraded content exceeds budget: %d", length)
	}
	if diff := cmp.Diff([]string{excerpt.NoteLineShortened}, result.Notes); diff != "" {
		t.Fatalf("unexpected notes (-want +got):\n%s", diff)
	}
}

func TestRenderLinesRejectsBudgetWithoutRoom(t *testing.T) {
	service := newTestService(t)
	settings := app.DefaultSettings()
	settings.Budget = 20
	_, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "long.txt", Start: 1, End: 1}, settings)
	if !errors.Is(err, excerpt.ErrBudgetTooSmall) {
		t.Fatalf("expected ErrBudgetTooSmall, got %v", err)
	}
}

func TestRenderEntity(t *testing.T) {
	testCases := []struct {
		name          string
		symbol        string
		radius        int
		offset        int
		expectedRange types.LineRange
		expectedError error
	}{
		{name: "method", symbol: "Renderer.Render", radius: 1, expectedRange: types.LineRange{Start: 10, End: 12}},
		{name: "type with offset", symbol: "Renderer", radius: 1, offset: 1, expectedRange: types.LineRange{Start: 6, End: 8}},
		{name: "import path qualified", symbol: "example.com/tool/internal/render.Renderer.Render", radius: 0, expectedRange: types.LineRange{Start: 11, End: 11}},
		{name: "unknown symbol", symbol: "Missing", radius: 1, expectedError: locate.ErrEntityNotFound},
	}
	service := newTestService(t)
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			settings := app.DefaultSettings()
			settings.Radius = testCase.radius
			settings.Offset = testCase.offset
			result, err := service.RenderEntity(context.Background(), app.EntityRequest{Path: "internal/render/render.go", Symbol: testCase.symbol}, settings)
			if testCase.expectedError != nil {
				if !errors.Is(err, testCase.expectedError) {
					t.Fatalf("expected %v, got %v", testCase.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RenderEntity error: %v", err)
			}
			if result.Actual != testCase.expectedRange {
				t.Fatalf("expected range %+v, got %+v", testCase.expectedRange, result.Actual)
			}
		})
	}
}

type runeCounter struct{}

func (runeCounter) Name() string { return "rune-count" }

func (runeCounter) CountString(input string) (int, error) {
	return len([]rune(input)), nil
}

func TestRenderLinesReportsTokenCounterName(t *testing.T) {
	rootDirectory := t.TempDir()
	writeRepositoryFile(t, rootDirectory, "a.txt", "alpha\nbeta\n")
	service := app.NewService(source.NewFileSource(rootDirectory), nil, app.WithTokenCounter(runeCounter{}))
	result, err := service.RenderLines(context.Background(), app.LinesRequest{Path: "a.txt", Start: 1, End: 2}, app.DefaultSettings())
	if err != nil {
		t.Fatalf("RenderLines error: %v", err)
	}
	if result.Model != "rune-count" {
		t.Fatalf("expected model from counter name, got %q", result.Model)
	}
	if result.Tokens != len([]rune(result.Content)) {
		t.Fatalf("expected %d tokens, got %d", len([]rune(result.Content)), result.Tokens)
	}
}
