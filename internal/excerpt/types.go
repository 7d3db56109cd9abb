// Package excerpt renders budget-constrained excerpts of source documents.
package excerpt

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBudget is the character budget applied when Options.Budget is not positive.
	DefaultBudget = 2000

	noteLinePrefix = "> "
	codeFence      = "```"
	lineSeparator  = "\n"
)

// SplitLines splits document text into lines. CRLF endings are normalized first.
func SplitLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(normalized, lineSeparator)
}

// Selection describes which lines of a document were requested.
type Selection interface {
	// Bounds returns the requested start and end lines, start never greater than end.
	Bounds() (int, int)
	trimsTop() bool
}

// AnchorSelection selects Radius lines around AnchorLine, shifted by Offset.
type AnchorSelection struct {
	AnchorLine int
	Radius     int
	Offset     int
}

// Bounds returns the window centered on the anchor line.
func (selection AnchorSelection) Bounds() (int, int) {
	return selection.AnchorLine - selection.Radius + selection.Offset, selection.AnchorLine + selection.Radius + selection.Offset
}

func (selection AnchorSelection) trimsTop() bool {
	return true
}

// RangeSelection selects an explicit inclusive line range.
type RangeSelection struct {
	Start int
	End   int
}

// Bounds returns the range, swapped when inverted.
func (selection RangeSelection) Bounds() (int, int) {
	if selection.End < selection.Start {
		return selection.End, selection.Start
	}
	return selection.Start, selection.End
}

func (selection RangeSelection) trimsTop() bool {
	return false
}

// Window tracks the requested line range next to the range actually rendered.
type Window struct {
	RequestedStart int
	RequestedEnd   int
	ActualStart    int
	ActualEnd      int
}

// Size is the number of lines in the actual range.
func (window Window) Size() int {
	return window.ActualEnd - window.ActualStart + 1
}

// Options controls formatting of a rendered excerpt.
type Options struct {
	IncludeLineNumbers bool
	Budget             int
	// Language is written after the opening code fence.
	Language string
}

func (options Options) budget() int {
	if options.Budget <= 0 {
		return DefaultBudget
	}
	return options.Budget
}

// Request is the complete input of a render.
type Request struct {
	File      string
	Lines     []string
	Selection Selection
	Options   Options
}

// Excerpt is a rendered excerpt together with the range it covers.
type Excerpt struct {
	File     string
	Language string
	Header   string
	Notes    []string
	Body     []string
	Window   Window
}

// String serializes the excerpt as header, note lines and a fenced body.
func (excerpt Excerpt) String() string {
	serializedLines := make([]string, 0, len(excerpt.Notes)+len(excerpt.Body)+3)
	serializedLines = append(serializedLines, excerpt.Header)
	for _, note := range excerpt.Notes {
		serializedLines = append(serializedLines, noteLinePrefix+note)
	}
	serializedLines = append(serializedLines, codeFence+excerpt.Language)
	serializedLines = append(serializedLines, excerpt.Body...)
	serializedLines = append(serializedLines, codeFence)
	return strings.Join(serializedLines, lineSeparator)
}

// Length returns the number of characters in the serialized excerpt.
func (excerpt Excerpt) Length() int {
	return utf8.RuneCountInString(excerpt.String())
}
