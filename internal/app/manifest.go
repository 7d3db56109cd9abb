package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	readManifestFormat    = "read batch manifest %s: %w"
	parseManifestFormat   = "parse batch manifest %s: %w"
	invalidEntryFormat    = "batch manifest %s entry %d: %s"
	entryMissingPath      = "path is required"
	entryMissingSelection = "either symbol or start is required"
	entryAmbiguous        = "symbol and start are mutually exclusive"
)

type manifestFile struct {
	Excerpts []manifestEntry `yaml:"excerpts"`
}

type manifestEntry struct {
	Path   string `yaml:"path"`
	Start  *int   `yaml:"start"`
	End    *int   `yaml:"end"`
	Symbol string `yaml:"symbol"`
}

// LoadBatchManifest reads a YAML manifest listing excerpts and returns them as
// batch specifications in file order:
//
//	excerpts:
//	  - path: src/structures/interaction.ts
//	    start: 35
//	    end: 50
//	  - path: internal/app/service.go
//	    symbol: Service.RenderLines
func LoadBatchManifest(path string) ([]string, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf(readManifestFormat, path, readErr)
	}
	var manifest manifestFile
	if unmarshalErr := yaml.Unmarshal(data, &manifest); unmarshalErr != nil {
		return nil, fmt.Errorf(parseManifestFormat, path, unmarshalErr)
	}
	specifications := make([]string, 0, len(manifest.Excerpts))
	for entryIndex, entry := range manifest.Excerpts {
		specification, entryError := entry.specification()
		if entryError != "" {
			return nil, fmt.Errorf(invalidEntryFormat, path, entryIndex+1, entryError)
		}
		specifications = append(specifications, specification)
	}
	return specifications, nil
}

func (entry manifestEntry) specification() (string, string) {
	documentPath := strings.TrimSpace(entry.Path)
	switch {
	case documentPath == "":
		return "", entryMissingPath
	case entry.Symbol != "" && entry.Start != nil:
		return "", entryAmbiguous
	case entry.Symbol != "":
		return documentPath + entitySeparator + entry.Symbol, ""
	case entry.Start == nil:
		return "", entryMissingSelection
	}
	end := *entry.Start
	if entry.End != nil {
		end = *entry.End
	}
	return documentPath + rangeSeparator + strconv.Itoa(*entry.Start) + boundSeparator + strconv.Itoa(end), ""
}
