package excerpt

import (
	"fmt"
	"unicode/utf8"
)

const shortenedFileMarker = "…"

// Render normalizes the selection, annotates the visible lines and trims the
// window until the serialized excerpt fits the budget.
//
// Anchor selections lose lines alternately from the bottom and the top, starting
// with the bottom; range selections only lose lines from the bottom. A single line
// that still does not fit yields a *SelectionTooLargeError.
func Render(request Request) (Excerpt, error) {
	requestedStart, requestedEnd := request.Selection.Bounds()
	window, normalizeError := Normalize(request.Lines, requestedStart, requestedEnd)
	if normalizeError != nil {
		return Excerpt{}, normalizeError
	}

	commentOpen := CommentOpenBefore(request.Lines, window.ActualStart)
	body, notes := Annotate(
		request.Lines[window.ActualStart-1:window.ActualEnd],
		window.ActualStart,
		window.ActualEnd,
		commentOpen,
		request.Options.IncludeLineNumbers,
	)

	state := newTrimState(request.File, request.Options.Language, window, notes, body)
	budget := request.Options.budget()
	trimsTop := request.Selection.trimsTop()
	for state.length() > budget {
		if state.window.Size() <= 1 {
			return Excerpt{}, &SelectionTooLargeError{Excerpt: state.excerpt(), Budget: budget}
		}
		state = state.step(trimsTop)
	}
	return state.excerpt(), nil
}

// Degrade turns a selection that cannot fit into a one-line excerpt whose line is
// cut short. When the header and notes leave no room for a single character, the
// file name shown in the header loses its leading directories first. If that is
// still not enough, Degrade returns ErrBudgetTooSmall.
func Degrade(tooLarge *SelectionTooLargeError) (Excerpt, error) {
	degraded := tooLarge.Excerpt
	var notes NoteSet
	for _, note := range degraded.Notes {
		notes.Add(note)
	}
	notes.Add(NoteLineShortened)
	degraded.Notes = notes.Notes()

	remainingLine := ""
	if len(degraded.Body) > 0 {
		remainingLine = degraded.Body[0]
	}
	degraded.Body = []string{""}
	required := min(1, utf8.RuneCountInString(remainingLine))

	available := tooLarge.Budget - degraded.Length()
	if available < required {
		shortenedFile := shortenFileName(degraded.File, required-available)
		degraded.Header = FormatHeader(shortenedFile, degraded.Window)
		available = tooLarge.Budget - degraded.Length()
	}
	if available < required {
		return Excerpt{}, fmt.Errorf(budgetTooSmallFormat, ErrBudgetTooSmall, tooLarge.Budget, degraded.Length()+required)
	}
	degraded.Body[0] = truncateRunes(remainingLine, available)
	return degraded, nil
}

// shortenFileName drops at least excess runes from the front of file, marking the
// cut with an ellipsis.
func shortenFileName(file string, excess int) string {
	fileRunes := []rune(file)
	kept := len(fileRunes) - excess - utf8.RuneCountInString(shortenedFileMarker)
	if kept < 0 {
		kept = 0
	}
	if kept >= len(fileRunes) {
		return file
	}
	return shortenedFileMarker + string(fileRunes[len(fileRunes)-kept:])
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

// trimState is one iteration of the trimming loop. step never mutates its receiver.
type trimState struct {
	file        string
	language    string
	window      Window
	notes       NoteSet
	header      string
	body        []string
	bodyLength  int
	trimTopNext bool
}

func newTrimState(file string, language string, window Window, notes NoteSet, body []string) trimState {
	bodyLength := 0
	for _, line := range body {
		bodyLength += utf8.RuneCountInString(line) + 1
	}
	return trimState{
		file:       file,
		language:   language,
		window:     window,
		notes:      notes,
		header:     FormatHeader(file, window),
		body:       body,
		bodyLength: bodyLength,
	}
}

func (state trimState) step(trimsTop bool) trimState {
	next := state
	next.notes = state.notes.Clone()
	next.notes.Add(NoteContentTrimmed)
	if trimsTop && state.trimTopNext {
		next.bodyLength -= utf8.RuneCountInString(state.body[0]) + 1
		next.body = state.body[1:]
		next.window.ActualStart++
	} else {
		lastIndex := len(state.body) - 1
		next.bodyLength -= utf8.RuneCountInString(state.body[lastIndex]) + 1
		next.body = state.body[:lastIndex]
		next.window.ActualEnd--
	}
	next.trimTopNext = !state.trimTopNext
	next.header = FormatHeader(next.file, next.window)
	return next
}

// length computes the serialized length without building the string.
func (state trimState) length() int {
	total := utf8.RuneCountInString(state.header) + 1
	for _, note := range state.notes.Notes() {
		total += utf8.RuneCountInString(noteLinePrefix) + utf8.RuneCountInString(note) + 1
	}
	total += utf8.RuneCountInString(codeFence+state.language) + 1
	total += state.bodyLength
	total += utf8.RuneCountInString(codeFence)
	return total
}

func (state trimState) excerpt() Excerpt {
	return Excerpt{
		File:     state.file,
		Language: state.language,
		Header:   state.header,
		Notes:    state.notes.Notes(),
		Body:     append([]string(nil), state.body...),
		Window:   state.window,
	}
}
