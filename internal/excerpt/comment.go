package excerpt

import "strings"

const (
	blockCommentOpen  = "/*"
	blockCommentClose = "*/"
)

// CommentOpenBefore scans backward from the line above actualStart and reports
// whether it reaches a line with an unmatched close marker before a line with an
// unmatched open marker. Lines whose markers pair up are skipped.
func CommentOpenBefore(lines []string, actualStart int) bool {
	for head := actualStart - 2; head >= 0 && head < len(lines); head-- {
		unmatchedOpen, unmatchedClose := unmatchedMarkers(lines[head])
		if unmatchedOpen {
			return false
		}
		if unmatchedClose {
			return true
		}
	}
	return false
}

// unmatchedMarkers pairs block-comment markers on one line from left to right.
// A trailing opener is reported before any earlier stray close because a
// backward scan meets it first.
func unmatchedMarkers(line string) (bool, bool) {
	openPending := false
	unmatchedClose := false
	for index := 0; index < len(line)-1; {
		switch {
		case strings.HasPrefix(line[index:], blockCommentOpen):
			openPending = true
			index += len(blockCommentOpen)
		case strings.HasPrefix(line[index:], blockCommentClose):
			if openPending {
				openPending = false
			} else {
				unmatchedClose = true
			}
			index += len(blockCommentClose)
		default:
			index++
		}
	}
	return openPending, unmatchedClose
}
