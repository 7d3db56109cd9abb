package excerpt

import "fmt"

const (
	headerFormat        = "`%s` - Lines %s to %s"
	unchangedLineFormat = "`%d`"
	adjustedLineFormat  = "~~`%d`~~ `%d`"
)

// FormatHeader renders the file name and line range, striking through any
// requested bound that differs from the rendered one.
func FormatHeader(file string, window Window) string {
	return fmt.Sprintf(headerFormat, file, formatAdjustment(window.RequestedStart, window.ActualStart), formatAdjustment(window.RequestedEnd, window.ActualEnd))
}

func formatAdjustment(requested int, actual int) string {
	if requested == actual {
		return fmt.Sprintf(unchangedLineFormat, requested)
	}
	return fmt.Sprintf(adjustedLineFormat, requested, actual)
}
