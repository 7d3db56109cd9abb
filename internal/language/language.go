// Package language maps file names to the code fence language used in excerpts.
package language

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

const extensionProbePrefix = "file"

// Detect returns the preferred fence alias for the file, or an empty string when
// no lexer claims it.
func Detect(fileName string) string {
	lexer := lexerForFile(fileName)
	if lexer == nil {
		return ""
	}
	lexerConfig := lexer.Config()
	if lexerConfig == nil {
		return ""
	}
	if len(lexerConfig.Aliases) > 0 {
		return lexerConfig.Aliases[0]
	}
	return strings.ToLower(lexerConfig.Name)
}

func lexerForFile(fileName string) chroma.Lexer {
	baseName := filepath.Base(fileName)
	lexer := lexers.Match(baseName)
	if lexer == nil {
		extension := filepath.Ext(baseName)
		if extension != "" {
			lexer = lexers.Match(extensionProbePrefix + extension)
		}
	}
	return lexer
}
