package excerpt

import "strings"

// Normalize fits the requested range into the document and trims blank edge lines.
// A range running past the last line is shifted up so its length is preserved.
func Normalize(lines []string, start int, end int) (Window, error) {
	totalLines := len(lines)
	window := Window{RequestedStart: start, RequestedEnd: end}
	if totalLines == 0 || start > totalLines {
		return window, &OutOfBoundsError{Start: start, TotalLines: totalLines}
	}

	actualStart, actualEnd := start, end
	if actualEnd > totalLines {
		actualStart = totalLines - (actualEnd - actualStart)
		actualEnd = totalLines
	}
	if actualStart < 1 {
		actualStart = 1
	}
	if actualEnd < actualStart {
		actualEnd = actualStart
	}

	for actualStart < actualEnd && isBlank(lines[actualStart-1]) {
		actualStart++
	}
	for actualEnd > actualStart && isBlank(lines[actualEnd-1]) {
		actualEnd--
	}

	window.ActualStart = actualStart
	window.ActualEnd = actualEnd
	return window, nil
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
