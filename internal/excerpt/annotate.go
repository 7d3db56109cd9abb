package excerpt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const lineNumberTagFormat = "/* %*d */ "

// commentContinuationPattern matches a documentation comment continuation such as "   * text".
var commentContinuationPattern = regexp.MustCompile(`^( {2,}) \*`)

// Annotate decorates the selected lines. firstLine is the document line number of
// lines[0] and lastLine sets the width of line number tags.
//
// commentOpen seeds a one-shot flag: it is raised by the seed or by any line
// containing "/*", and is consumed by the next line that is eligible for rewriting.
// With line numbers enabled every line is eligible.
func Annotate(lines []string, firstLine int, lastLine int, commentOpen bool, includeLineNumbers bool) ([]string, NoteSet) {
	var notes NoteSet
	annotatedLines := make([]string, len(lines))
	numberWidth := len(strconv.Itoa(lastLine))

	for index, line := range lines {
		renderedLine := line
		if strings.Contains(line, blockCommentOpen) {
			commentOpen = true
		}
		if commentOpen || includeLineNumbers {
			commentOpen = false
			rewrittenLine := commentContinuationPattern.ReplaceAllString(line, "${1}"+blockCommentOpen)
			if rewrittenLine != line {
				renderedLine = rewrittenLine
				notes.Add(NoteCommentAltered)
			}
		}
		if includeLineNumbers {
			renderedLine = fmt.Sprintf(lineNumberTagFormat, numberWidth, firstLine+index) + renderedLine
		}
		annotatedLines[index] = renderedLine
	}
	return annotatedLines, notes
}
