// Package types defines the cross-package data structures used by the excerpt CLI and server.
package types

import "encoding/xml"

const (
	CommandLines  = "lines"
	CommandEntity = "entity"
	CommandBatch  = "batch"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// LineRange is an inclusive 1-based line span.
type LineRange struct {
	Start int `json:"start" xml:"start"`
	End   int `json:"end" xml:"end"`
}

// ExcerptOutput is the structured form of one rendered excerpt.
type ExcerptOutput struct {
	XMLName   xml.Name  `json:"-" xml:"excerpt"`
	File      string    `json:"file" xml:"file"`
	Revision  string    `json:"revision,omitempty" xml:"revision,omitempty"`
	Language  string    `json:"language,omitempty" xml:"language,omitempty"`
	Header    string    `json:"header" xml:"header"`
	Notes     []string  `json:"notes,omitempty" xml:"notes>note,omitempty"`
	Body      []string  `json:"body" xml:"body>line"`
	Requested LineRange `json:"requested" xml:"requested"`
	Actual    LineRange `json:"actual" xml:"actual"`
	Link      string    `json:"link,omitempty" xml:"link,omitempty"`
	Content   string    `json:"content" xml:"content"`
	Degraded  bool      `json:"degraded,omitempty" xml:"degraded,omitempty"`
	Tokens    int       `json:"tokens,omitempty" xml:"tokens,omitempty"`
	Model     string    `json:"model,omitempty" xml:"model,omitempty"`
}

// FailoverOutput is the structured form of an out-of-bounds selection.
type FailoverOutput struct {
	XMLName    xml.Name `json:"-" xml:"failover"`
	File       string   `json:"file" xml:"file"`
	Start      int      `json:"start" xml:"start"`
	TotalLines int      `json:"totalLines" xml:"totalLines"`
	Message    string   `json:"message" xml:"message"`
}

// BatchItem pairs one batch specification with its outcome. Exactly one of
// Excerpt, Failover and Error is set.
type BatchItem struct {
	Spec     string          `json:"spec" xml:"spec,attr"`
	Excerpt  *ExcerptOutput  `json:"excerpt,omitempty" xml:"excerpt,omitempty"`
	Failover *FailoverOutput `json:"failover,omitempty" xml:"failover,omitempty"`
	Error    string          `json:"error,omitempty" xml:"error,omitempty"`
}
