// Package tokenizer estimates how many model tokens a rendered excerpt costs.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content. Name reports the model or
// encoding the counts are computed for.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Model string
}

const (
	defaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"
)

var openAIModelPrefixes = []string{
	"gpt-",
	"o1",
	"o3",
	"text-embedding",
	"davinci",
	"babbage",
	"code-",
}

// NewCounter returns a Counter for the requested model. Models without a known
// tiktoken encoding fall back to cl100k_base, which the counter's Name reports.
func NewCounter(cfg Config) (Counter, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	lowerModel := strings.ToLower(model)

	if isOpenAIModel(lowerModel) {
		encoding, err := tiktoken.EncodingForModel(lowerModel)
		if err == nil && encoding != nil {
			return encodingCounter{encoding: encoding, name: lowerModel}, nil
		}
	}
	encoding, err := tiktoken.GetEncoding(defaultEncodingName)
	if err != nil {
		return nil, fmt.Errorf("initialize default tokenizer: %w", err)
	}
	return encodingCounter{encoding: encoding, name: defaultEncodingName}, nil
}

func isOpenAIModel(model string) bool {
	for _, prefix := range openAIModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
