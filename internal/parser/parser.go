// Package parser loads documentation pages and overview files.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedOverviewExtensions lists the overview file formats.
var SupportedOverviewExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// IsSupportedOverview reports whether an overview file can be loaded.
func IsSupportedOverview(filename string) bool {
	return SupportedOverviewExtensions[strings.ToLower(filepath.Ext(filename))]
}

// LoadOverview returns the overview file as an HTML fragment. HTML overviews
// contribute their body; Markdown files are rendered.
func LoadOverview(path, cs string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		doc, err := LoadHTML(path, cs)
		if err != nil {
			return "", err
		}
		return doc.Find("body").Html()
	case ".md", ".markdown":
		return LoadMarkdown(path)
	default:
		return "", fmt.Errorf("unsupported overview file %s", path)
	}
}
