package tokenizer

import (
	"errors"
	"unicode/utf8"
)

// CountResult captures the outcome of counting a rendered excerpt.
type CountResult struct {
	Tokens  int
	Counted bool
}

// CountText estimates tokens for text using counter. Invalid UTF-8 is reported
// as not counted rather than as an error.
func CountText(counter Counter, text string) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errors.New("nil tokenizer counter")
	}
	if !utf8.ValidString(text) {
		return CountResult{Counted: false}, nil
	}
	tokens, err := counter.CountString(text)
	if err != nil {
		return CountResult{}, err
	}
	return CountResult{Tokens: tokens, Counted: true}, nil
}
