package excerpt_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tyemirov/excerpt/internal/excerpt"
)

const testFileName = "src/structures/interaction.ts"

func numberedLines(count int, width int) []string {
	lines := make([]string, count)
	for index := range lines {
		prefix := fmt.Sprintf("line %d ", index+1)
		lines[index] = prefix + strings.Repeat("x", width-len(prefix))
	}
	return lines
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name          string
		lines         []string
		start         int
		end           int
		expectedStart int
		expectedEnd   int
	}{
		{name: "blank edges", lines: []string{"", "a", "b", ""}, start: 1, end: 4, expectedStart: 2, expectedEnd: 3},
		{name: "overflow shifts window", lines: numberedLines(50, 20), start: 45, end: 60, expectedStart: 35, expectedEnd: 50},
		{name: "negative start clamps", lines: numberedLines(10, 20), start: -4, end: 3, expectedStart: 1, expectedEnd: 3},
		{name: "window entirely above document", lines: numberedLines(10, 20), start: -9, end: -3, expectedStart: 1, expectedEnd: 1},
		{name: "consecutive blank edges", lines: []string{"a", " ", "\t", "b", "", "", "c"}, start: 2, end: 6, expectedStart: 4, expectedEnd: 4},
		{name: "all blank keeps one line", lines: []string{"", "", ""}, start: 1, end: 3, expectedStart: 3, expectedEnd: 3},
		{name: "untouched range", lines: numberedLines(10, 20), start: 3, end: 7, expectedStart: 3, expectedEnd: 7},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			window, err := excerpt.Normalize(testCase.lines, testCase.start, testCase.end)
			if err != nil {
				t.Fatalf("Normalize error: %v", err)
			}
			if window.ActualStart != testCase.expectedStart || window.ActualEnd != testCase.expectedEnd {
				t.Fatalf("expected [%d,%d], got [%d,%d]", testCase.expectedStart, testCase.expectedEnd, window.ActualStart, window.ActualEnd)
			}
			if window.RequestedStart != testCase.start || window.RequestedEnd != testCase.end {
				t.Fatalf("requested bounds not preserved: %+v", window)
			}
		})
	}
}

func TestNormalizeKeepsWindowInsideDocument(t *testing.T) {
	for totalLines := 1; totalLines <= 12; totalLines++ {
		lines := numberedLines(totalLines, 12)
		for start := 1; start <= totalLines; start++ {
			for end := start; end <= totalLines; end++ {
				window, err := excerpt.Normalize(lines, start, end)
				if err != nil {
					t.Fatalf("Normalize(%d, %d, %d) error: %v", totalLines, start, end, err)
				}
				if window.ActualStart < 1 || window.ActualStart > window.ActualEnd || window.ActualEnd > totalLines {
					t.Fatalf("Normalize(%d, %d, %d) produced %+v", totalLines, start, end, window)
				}
			}
		}
	}
}

func TestNormalizeOutOfBounds(t *testing.T) {
	_, err := excerpt.Normalize(numberedLines(10, 20), 20, 25)
	var boundsError *excerpt.OutOfBoundsError
	if !errors.As(err, &boundsError) {
		t.Fatalf("expected OutOfBoundsError, got %v", err)
	}
	if diff := cmp.Diff(excerpt.OutOfBoundsError{Start: 20, TotalLines: 10}, *boundsError); diff != "" {
		t.Fatalf("unexpected error (-want +got):\n%s", diff)
	}
}

func TestCommentOpenBefore(t *testing.T) {
	testCases := []struct {
		name     string
		lines    []string
		start    int
		expected bool
	}{
		{name: "after closing line", lines: []string{"/** a", "  b */", "   * c"}, start: 3, expected: true},
		{name: "after closed doc comment", lines: []string{"/**", " * doc", " */", "func a() {}"}, start: 4, expected: true},
		{name: "inside open doc comment", lines: []string{"/**", "   * x", "   * y"}, start: 3, expected: false},
		{name: "opener stops the scan", lines: []string{"a */", "/* b", "c"}, start: 3, expected: false},
		{name: "paired markers are skipped", lines: []string{"x */", "/* note */", "code"}, start: 3, expected: true},
		{name: "single line comment", lines: []string{"/* note */", "code"}, start: 2, expected: false},
		{name: "closed then reopened", lines: []string{"*/ x /*", "text"}, start: 2, expected: false},
		{name: "stray close after pair", lines: []string{"/* a */ b */", "text"}, start: 2, expected: true},
		{name: "no markers", lines: []string{"a", "b", "c"}, start: 3, expected: false},
		{name: "first line", lines: []string{"/*", "b"}, start: 1, expected: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := excerpt.CommentOpenBefore(testCase.lines, testCase.start); actual != testCase.expected {
				t.Fatalf("expected %t, got %t", testCase.expected, actual)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	testCases := []struct {
		name          string
		lines         []string
		firstLine     int
		lastLine      int
		commentOpen   bool
		lineNumbers   bool
		expectedLines []string
		expectedNotes []string
	}{
		{
			name:          "plain lines pass through",
			lines:         []string{"const a = 1;", "   * not a comment"},
			firstLine:     1,
			lastLine:      2,
			expectedLines: []string{"const a = 1;", "   * not a comment"},
		},
		{
			name:          "seeded flag rewrites only the first line",
			lines:         []string{"   * doc", "   * more", "   */"},
			firstLine:     4,
			lastLine:      6,
			commentOpen:   true,
			expectedLines: []string{"  /* doc", "   * more", "   */"},
			expectedNotes: []string{excerpt.NoteCommentAltered},
		},
		{
			name:          "opener line consumes the flag",
			lines:         []string{"/**", "   * doc"},
			firstLine:     1,
			lastLine:      2,
			expectedLines: []string{"/**", "   * doc"},
		},
		{
			name:          "line numbers make every line eligible",
			lines:         []string{"a", "   * b", "   * c"},
			firstLine:     9,
			lastLine:      11,
			lineNumbers:   true,
			expectedLines: []string{"/*  9 */ a", "/* 10 */   /* b", "/* 11 */   /* c"},
			expectedNotes: []string{excerpt.NoteCommentAltered},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			lines, notes := excerpt.Annotate(testCase.lines, testCase.firstLine, testCase.lastLine, testCase.commentOpen, testCase.lineNumbers)
			if diff := cmp.Diff(testCase.expectedLines, lines); diff != "" {
				t.Fatalf("unexpected lines (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(testCase.expectedNotes, notes.Notes()); diff != "" {
				t.Fatalf("unexpected notes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatHeader(t *testing.T) {
	testCases := []struct {
		name     string
		window   excerpt.Window
		expected string
	}{
		{
			name:     "unchanged",
			window:   excerpt.Window{RequestedStart: 3, RequestedEnd: 9, ActualStart: 3, ActualEnd: 9},
			expected: "`a.ts` - Lines `3` to `9`",
		},
		{
			name:     "shifted",
			window:   excerpt.Window{RequestedStart: 45, RequestedEnd: 60, ActualStart: 35, ActualEnd: 50},
			expected: "`a.ts` - Lines ~~`45`~~ `35` to ~~`60`~~ `50`",
		},
		{
			name:     "end only",
			window:   excerpt.Window{RequestedStart: 1, RequestedEnd: 4, ActualStart: 1, ActualEnd: 3},
			expected: "`a.ts` - Lines `1` to ~~`4`~~ `3`",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if actual := excerpt.FormatHeader("a.ts", testCase.window); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}

func TestNoteSetKeepsFirstInsertionOrder(t *testing.T) {
	var notes excerpt.NoteSet
	notes.Add("b")
	notes.Add("a")
	notes.Add("b")
	if diff := cmp.Diff([]string{"b", "a"}, notes.Notes()); diff != "" {
		t.Fatalf("unexpected notes (-want +got):\n%s", diff)
	}
	cloned := notes.Clone()
	cloned.Add("c")
	if notes.Len() != 2 || cloned.Len() != 3 || notes.Contains("c") {
		t.Fatalf("clone shares state with original")
	}
}

func TestRenderFitsWithoutTrimming(t *testing.T) {
	lines := excerpt.SplitLines("package main\n\nfunc main() {\n\tprintln(1)\n}\n")
	rendered, err := excerpt.Render(excerpt.Request{
		File:      "main.go",
		Lines:     lines,
		Selection: excerpt.RangeSelection{Start: 3, End: 5},
		Options:   excerpt.Options{Language: "go"},
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	expected := "`main.go` - Lines `3` to `5`\n```go\nfunc main() {\n\tprintln(1)\n}\n```"
	if rendered.String() != expected {
		t.Fatalf("expected %q, got %q", expected, rendered.String())
	}
	if rendered.Window.ActualStart != 3 || rendered.Window.ActualEnd != 5 {
		t.Fatalf("unexpected window %+v", rendered.Window)
	}
	if len(rendered.Notes) != 0 {
		t.Fatalf("expected no notes, got %v", rendered.Notes)
	}
}

func TestRenderRewritesLineAfterCommentClose(t *testing.T) {
	rendered, err := excerpt.Render(excerpt.Request{
		File:      testFileName,
		Lines:     []string{"/** a", "  b */", "   * c", "code"},
		Selection: excerpt.RangeSelection{Start: 3, End: 4},
		Options:   excerpt.Options{Language: "ts"},
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if diff := cmp.Diff([]string{"  /* c", "code"}, rendered.Body); diff != "" {
		t.Fatalf("unexpected body (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{excerpt.NoteCommentAltered}, rendered.Notes); diff != "" {
		t.Fatalf("unexpected notes (-want +got):\n%s", diff)
	}
}

func TestRenderSwapsInvertedRange(t *testing.T) {
	rendered, err := excerpt.Render(excerpt.Request{
		File:      testFileName,
		Lines:     numberedLines(20, 20),
		Selection: excerpt.RangeSelection{Start: 8, End: 4},
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if rendered.Window.ActualStart != 4 || rendered.Window.ActualEnd != 8 {
		t.Fatalf("unexpected window %+v", rendered.Window)
	}
}

func TestRenderTrimsAnchorSelectionAlternately(t *testing.T) {
	lines := numberedLines(100, 59)
	selection := excerpt.AnchorSelection{AnchorLine: 50, Radius: 20}
	rendered, err := excerpt.Render(excerpt.Request{File: testFileName, Lines: lines, Selection: selection})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if rendered.Length() > excerpt.DefaultBudget {
		t.Fatalf("excerpt length %d exceeds budget", rendered.Length())
	}
	topTrims := rendered.Window.ActualStart - 30
	bottomTrims := 70 - rendered.Window.ActualEnd
	if topTrims <= 0 || bottomTrims-topTrims != 0 && bottomTrims-topTrims != 1 {
		t.Fatalf("expected alternating trims, got %d top and %d bottom", topTrims, bottomTrims)
	}
	if diff := cmp.Diff([]string{excerpt.NoteContentTrimmed}, rendered.Notes); diff != "" {
		t.Fatalf("unexpected notes (-want +got):\n%s", diff)
	}
	if rendered.Body[0] != lines[rendered.Window.ActualStart-1] {
		t.Fatalf("body does not start at the actual start line")
	}
	expectedHeader := fmt.Sprintf("`%s` - Lines ~~`30`~~ `%d` to ~~`70`~~ `%d`", testFileName, rendered.Window.ActualStart, rendered.Window.ActualEnd)
	if rendered.Header != expectedHeader {
		t.Fatalf("expected header %q, got %q", expectedHeader, rendered.Header)
	}
}

func TestRenderTrimsRangeSelectionFromBottom(t *testing.T) {
	rendered, err := excerpt.Render(excerpt.Request{
		File:      testFileName,
		Lines:     numberedLines(100, 59),
		Selection: excerpt.RangeSelection{Start: 10, End: 50},
		Options:   excerpt.Options{IncludeLineNumbers: true},
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if rendered.Window.ActualStart != 10 || rendered.Window.ActualEnd >= 50 {
		t.Fatalf("unexpected window %+v", rendered.Window)
	}
	if rendered.Length() > excerpt.DefaultBudget {
		t.Fatalf("excerpt length %d exceeds budget", rendered.Length())
	}
	if !strings.HasPrefix(rendered.Body[0], "/* 10 */ ") {
		t.Fatalf("expected numbered first line, got %q", rendered.Body[0])
	}
}

func TestRenderAlwaysWithinBudget(t *testing.T) {
	lines := numberedLines(200, 45)
	for _, budget := range []int{150, 400, 900, 2000} {
		for radius := 1; radius <= 60; radius += 7 {
			for _, lineNumbers := range []bool{false, true} {
				request := excerpt.Request{
					File:      testFileName,
					Lines:     lines,
					Selection: excerpt.AnchorSelection{AnchorLine: 100, Radius: radius, Offset: radius / 2},
					Options:   excerpt.Options{Budget: budget, IncludeLineNumbers: lineNumbers},
				}
				rendered, err := excerpt.Render(request)
				if err != nil {
					var sizeError *excerpt.SelectionTooLargeError
					if !errors.As(err, &sizeError) {
						t.Fatalf("unexpected error: %v", err)
					}
					degraded, degradeErr := excerpt.Degrade(sizeError)
					if degradeErr != nil {
						if !errors.Is(degradeErr, excerpt.ErrBudgetTooSmall) {
							t.Fatalf("unexpected degrade error: %v", degradeErr)
						}
						continue
					}
					if degraded.Length() > budget || len(degraded.Body) != 1 || degraded.Body[0] == "" {
						t.Fatalf("budget %d radius %d: degraded to %d characters with body %q", budget, radius, degraded.Length(), degraded.Body)
					}
					continue
				}
				if rendered.Length() > budget {
					t.Fatalf("budget %d radius %d: length %d", budget, radius, rendered.Length())
				}
				if len(rendered.Body) == 0 || len(rendered.Body) != rendered.Window.Size() {
					t.Fatalf("body of %d lines for window %+v", len(rendered.Body), rendered.Window)
				}
				again, _ := excerpt.Render(request)
				if diff := cmp.Diff(rendered, again); diff != "" {
					t.Fatalf("render is not deterministic (-first +second):\n%s", diff)
				}
			}
		}
	}
}

func TestRenderSelectionTooLargeDegrades(t *testing.T) {
	lines := []string{"short", strings.Repeat("é", 3000), "short"}
	_, err := excerpt.Render(excerpt.Request{
		File:      testFileName,
		Lines:     lines,
		Selection: excerpt.RangeSelection{Start: 2, End: 2},
	})
	var sizeError *excerpt.SelectionTooLargeError
	if !errors.As(err, &sizeError) {
		t.Fatalf("expected SelectionTooLargeError, got %v", err)
	}
	degraded, err := excerpt.Degrade(sizeError)
	if err != nil {
		t.Fatalf("Degrade error: %v", err)
	}
	if degraded.Length() != excerpt.DefaultBudget {
		t.Fatalf("expected degraded excerpt to fill the budget exactly, got %d", degraded.Length())
	}
	if len(degraded.Body) != 1 || degraded.Body[0] == "" {
		t.Fatalf("expected one non-empty line, got %v", degraded.Body)
	}
	if diff := cmp.Diff([]string{excerpt.NoteLineShortened}, degraded.Notes); diff != "" {
		t.Fatalf("unexpected notes (-want +got):\n%s", diff)
	}
}

func TestDegradeShortensLongFileName(t *testing.T) {
	const longFileName = "a/very/long/path/to/some/file/name.ts"
	testCases := []struct {
		name           string
		budget         int
		expectedHeader string
		expectedBody   []string
		expectTooSmall bool
	}{
		{
			name:           "file name gives way to one character",
			budget:         100,
			expectedHeader: "`…/some/file/name.ts` - Lines `1` to `1`",
			expectedBody:   []string{"a"},
		},
		{
			name:           "nothing fits",
			budget:         40,
			expectTooSmall: true,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := excerpt.Render(excerpt.Request{
				File:      longFileName,
				Lines:     []string{strings.Repeat("abcdefghij", 4)},
				Selection: excerpt.RangeSelection{Start: 1, End: 1},
				Options:   excerpt.Options{Budget: testCase.budget, Language: "ts"},
			})
			var sizeError *excerpt.SelectionTooLargeError
			if !errors.As(err, &sizeError) {
				t.Fatalf("expected SelectionTooLargeError, got %v", err)
			}
			degraded, err := excerpt.Degrade(sizeError)
			if testCase.expectTooSmall {
				if !errors.Is(err, excerpt.ErrBudgetTooSmall) {
					t.Fatalf("expected ErrBudgetTooSmall, got %v (%q)", err, degraded.String())
				}
				return
			}
			if err != nil {
				t.Fatalf("Degrade error: %v", err)
			}
			if degraded.Header != testCase.expectedHeader {
				t.Fatalf("expected header %q, got %q", testCase.expectedHeader, degraded.Header)
			}
			if diff := cmp.Diff(testCase.expectedBody, degraded.Body); diff != "" {
				t.Fatalf("unexpected body (-want +got):\n%s", diff)
			}
			if degraded.Length() > testCase.budget {
				t.Fatalf("degraded excerpt of %d characters exceeds budget %d", degraded.Length(), testCase.budget)
			}
			if degraded.File != longFileName {
				t.Fatalf("expected full file name to be kept, got %q", degraded.File)
			}
		})
	}
}

func TestRenderOutOfBounds(t *testing.T) {
	_, err := excerpt.Render(excerpt.Request{
		File:      testFileName,
		Lines:     numberedLines(10, 20),
		Selection: excerpt.RangeSelection{Start: 20, End: 30},
	})
	var boundsError *excerpt.OutOfBoundsError
	if !errors.As(err, &boundsError) || boundsError.Start != 20 || boundsError.TotalLines != 10 {
		t.Fatalf("expected OutOfBoundsError{20, 10}, got %v", err)
	}
}
