package excerpt

import (
	"errors"
	"fmt"
)

// ErrBudgetTooSmall indicates that not even a one-character excerpt fits the budget.
var ErrBudgetTooSmall = errors.New("excerpt: budget too small")

const (
	outOfBoundsErrorFormat       = "start line %d is beyond the last line %d"
	selectionTooLargeErrorFormat = "selection of lines %d to %d cannot fit within %d characters"
	budgetTooSmallFormat         = "%w: %d characters, at least %d required"
)

// OutOfBoundsError reports a requested start line past the end of the document.
type OutOfBoundsError struct {
	Start      int
	TotalLines int
}

func (boundsError *OutOfBoundsError) Error() string {
	return fmt.Sprintf(outOfBoundsErrorFormat, boundsError.Start, boundsError.TotalLines)
}

// SelectionTooLargeError reports that trimming would have removed every line.
// Excerpt holds the last state, a single line that still exceeds Budget.
type SelectionTooLargeError struct {
	Excerpt Excerpt
	Budget  int
}

func (sizeError *SelectionTooLargeError) Error() string {
	return fmt.Sprintf(selectionTooLargeErrorFormat, sizeError.Excerpt.Window.ActualStart, sizeError.Excerpt.Window.ActualEnd, sizeError.Budget)
}
