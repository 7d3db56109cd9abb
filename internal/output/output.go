// Package output renders excerpts and failover notices in the raw, JSON and XML formats.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	linkLineFormat      = "View full range: %s"
	tokensLineFormat    = "Tokens: %d (%s)"
	failoverHeadline    = "**Failover:** Line selection out of bounds."
	failoverStartFormat = "> Start Line: `%d`"
	failoverTotalFormat = "> Total Lines: `%d`"
	batchSeparator      = "----------------------------------------"
	batchSpecFormat     = "--- %s ---"
	batchErrorFormat    = "Error: %s"

	unsupportedFormatMessage = "unsupported output format %q"
)

// NewExcerptOutput converts a rendered excerpt into its structured form.
func NewExcerptOutput(rendered excerpt.Excerpt, revision string, link string) types.ExcerptOutput {
	return types.ExcerptOutput{
		File:      rendered.File,
		Revision:  revision,
		Language:  rendered.Language,
		Header:    rendered.Header,
		Notes:     rendered.Notes,
		Body:      rendered.Body,
		Requested: types.LineRange{Start: rendered.Window.RequestedStart, End: rendered.Window.RequestedEnd},
		Actual:    types.LineRange{Start: rendered.Window.ActualStart, End: rendered.Window.ActualEnd},
		Link:      link,
		Content:   rendered.String(),
	}
}

// FailoverMessage formats the notice shown when a selection starts past the end of a document.
func FailoverMessage(start int, totalLines int) string {
	return strings.Join([]string{
		failoverHeadline,
		fmt.Sprintf(failoverStartFormat, start),
		fmt.Sprintf(failoverTotalFormat, totalLines),
	}, "\n")
}

// NewFailoverOutput converts an out-of-bounds error into its structured form.
func NewFailoverOutput(file string, boundsError *excerpt.OutOfBoundsError) types.FailoverOutput {
	return types.FailoverOutput{
		File:       file,
		Start:      boundsError.Start,
		TotalLines: boundsError.TotalLines,
		Message:    FailoverMessage(boundsError.Start, boundsError.TotalLines),
	}
}

// RenderRaw returns the excerpt message followed by its link and token count when present.
func RenderRaw(data types.ExcerptOutput) string {
	var buffer bytes.Buffer
	buffer.WriteString(data.Content)
	buffer.WriteString("\n")
	if data.Link != "" {
		buffer.WriteString(fmt.Sprintf(linkLineFormat, data.Link))
		buffer.WriteString("\n")
	}
	if data.Tokens > 0 {
		buffer.WriteString(fmt.Sprintf(tokensLineFormat, data.Tokens, data.Model))
		buffer.WriteString("\n")
	}
	return buffer.String()
}

// RenderBatchRaw renders each batch item in order, separated by a divider line.
func RenderBatchRaw(items []types.BatchItem) string {
	var buffer bytes.Buffer
	for itemIndex, item := range items {
		if itemIndex > 0 {
			buffer.WriteString(batchSeparator + "\n")
		}
		buffer.WriteString(fmt.Sprintf(batchSpecFormat, item.Spec) + "\n")
		switch {
		case item.Excerpt != nil:
			buffer.WriteString(RenderRaw(*item.Excerpt))
		case item.Failover != nil:
			buffer.WriteString(item.Failover.Message + "\n")
		default:
			buffer.WriteString(fmt.Sprintf(batchErrorFormat, item.Error) + "\n")
		}
	}
	return buffer.String()
}

// RenderJSON marshals data as indented JSON.
func RenderJSON(data interface{}) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(data, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// RenderXML marshals data as an indented XML document.
func RenderXML(data interface{}) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(data, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// RenderBatchXML wraps batch items in a single batch element.
func RenderBatchXML(items []types.BatchItem) (string, error) {
	wrapper := struct {
		XMLName xml.Name          `xml:"batch"`
		Items   []types.BatchItem `xml:"item"`
	}{Items: items}
	return RenderXML(wrapper)
}

// RenderExcerpt dispatches a single excerpt to the requested format.
func RenderExcerpt(format string, data types.ExcerptOutput) (string, error) {
	switch format {
	case types.FormatRaw:
		return RenderRaw(data), nil
	case types.FormatJSON:
		return RenderJSON(data)
	case types.FormatXML:
		return RenderXML(data)
	default:
		return "", fmt.Errorf(unsupportedFormatMessage, format)
	}
}

// RenderFailover dispatches a failover notice to the requested format.
func RenderFailover(format string, data types.FailoverOutput) (string, error) {
	switch format {
	case types.FormatRaw:
		return data.Message + "\n", nil
	case types.FormatJSON:
		return RenderJSON(data)
	case types.FormatXML:
		return RenderXML(data)
	default:
		return "", fmt.Errorf(unsupportedFormatMessage, format)
	}
}

// RenderBatch dispatches batch items to the requested format.
func RenderBatch(format string, items []types.BatchItem) (string, error) {
	switch format {
	case types.FormatRaw:
		return RenderBatchRaw(items), nil
	case types.FormatJSON:
		return RenderJSON(items)
	case types.FormatXML:
		return RenderBatchXML(items)
	default:
		return "", fmt.Errorf(unsupportedFormatMessage, format)
	}
}
