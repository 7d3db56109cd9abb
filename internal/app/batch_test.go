package app_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tyemirov/excerpt/internal/app"
)

func TestParseBatchSpec(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expected    app.BatchSpec
		expectError bool
	}{
		{name: "range", raw: "src/a.ts:10-20", expected: app.BatchSpec{Raw: "src/a.ts:10-20", Path: "src/a.ts", Start: 10, End: 20}},
		{name: "single line", raw: "src/a.ts:7", expected: app.BatchSpec{Raw: "src/a.ts:7", Path: "src/a.ts", Start: 7, End: 7}},
		{name: "entity", raw: "pkg/a.go#Renderer.Render", expected: app.BatchSpec{Raw: "pkg/a.go#Renderer.Render", Path: "pkg/a.go", Symbol: "Renderer.Render"}},
		{name: "missing bounds", raw: "src/a.ts", expectError: true},
		{name: "non numeric", raw: "src/a.ts:a-b", expectError: true},
		{name: "empty symbol", raw: "src/a.ts#", expectError: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			spec, err := app.ParseBatchSpec(testCase.raw)
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected error, got %+v", spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBatchSpec error: %v", err)
			}
			if diff := cmp.Diff(testCase.expected, spec); diff != "" {
				t.Fatalf("unexpected spec (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderBatchPreservesInputOrder(t *testing.T) {
	service := newTestService(t)
	specs := []string{
		"numbered.txt:3-4",
		"internal/render/render.go#Renderer.Render",
		"numbered.txt:90-95",
		"not a spec",
		"numbered.txt:1",
	}
	items, err := service.RenderBatch(context.Background(), specs, app.DefaultSettings())
	if err != nil {
		t.Fatalf("RenderBatch error: %v", err)
	}
	if len(items) != len(specs) {
		t.Fatalf("expected %d items, got %d", len(specs), len(items))
	}
	for itemIndex, item := range items {
		if item.Spec != specs[itemIndex] {
			t.Fatalf("item %d has spec %q, expected %q", itemIndex, item.Spec, specs[itemIndex])
		}
	}
	if items[0].Excerpt == nil || items[0].Excerpt.Actual.Start != 3 {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Excerpt == nil {
		t.Fatalf("expected entity excerpt, got %+v", items[1])
	}
	if items[2].Failover == nil || items[2].Failover.TotalLines != 20 {
		t.Fatalf("expected failover, got %+v", items[2])
	}
	if items[3].Error == "" {
		t.Fatalf("expected parse error, got %+v", items[3])
	}
	if items[4].Excerpt == nil || items[4].Excerpt.Actual.End != 1 {
		t.Fatalf("unexpected last item %+v", items[4])
	}
}

func TestRenderBatchCanceledContext(t *testing.T) {
	service := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := service.RenderBatch(ctx, []string{"numbered.txt:1-2"}, app.DefaultSettings()); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
