package assembler

import (
	"strings"

	"github.com/dgallion1/docmerge/internal/doctree"
)

// TOCEntry is one line of the table of contents.
type TOCEntry struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Depth  int    `json:"depth"`            // Indentation units
	Bold   bool   `json:"bold"`             // Packages and the base package
	Anchor string `json:"anchor,omitempty"` // Set on the base package entry only
	Kind   string `json:"kind"`
}

// TOCEntries lays out the table of contents for pages in document order.
// The base package entry is unindented; every other entry is indented one
// unit plus one per dot in its name relative to the base package.
func TOCEntries(basePackage string, pages []doctree.Page) []TOCEntry {
	baseID := doctree.PackageID(basePackage)
	entries := make([]TOCEntry, 0, len(pages))
	for _, p := range pages {
		id := strings.TrimSpace(p.ID)
		if id == baseID {
			entries = append(entries, TOCEntry{
				ID:     id,
				Label:  basePackage,
				Bold:   true,
				Anchor: tocID,
				Kind:   p.Kind.String(),
			})
			continue
		}

		// Ids are compared before mapping back to dots, the base package
		// name may itself contain the separator.
		name := doctree.DisplayName(strings.TrimPrefix(id, baseID+doctree.Separator))
		label := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			label = name[i+1:]
		}
		entries = append(entries, TOCEntry{
			ID:    id,
			Label: label,
			Depth: 1 + strings.Count(name, "."),
			Bold:  p.Kind == doctree.KindPackage,
			Kind:  p.Kind.String(),
		})
	}
	return entries
}
