// Package assembler concatenates transformed pages into one HTML document and
// builds its table of contents.
package assembler

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dgallion1/docmerge/internal/doctree"
	"github.com/dgallion1/docmerge/internal/styles"
	"github.com/dgallion1/docmerge/internal/transform"
)

const (
	tocID             = "toc"
	packageHierarchy  = "package-hierarchy"
	overviewID        = "overview"
	pageBreakTemplate = `<div class="page-break"></div>`
)

// Options controls the presentation rules of the merged document.
type Options struct {
	PageSize    string // CSS @page size, e.g. A4
	PageMargins string // CSS @page margin shorthand
	PageNumbers bool   // Page counter in the bottom margin
	LinkColor   string
	IndentUnit  int // Non-breaking spaces per TOC nesting level
}

// DefaultOptions returns the presentation used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PageSize:    "A4",
		PageMargins: "30pt 30pt 50pt 30pt",
		PageNumbers: true,
		LinkColor:   "blue",
		IndentUnit:  6,
	}
}

// Assembler accumulates sections into the output document.
type Assembler struct {
	opts  Options
	doc   *goquery.Document
	pages []doctree.Page
}

// New builds the document shell.
func New(opts Options) *Assembler {
	if opts.IndentUnit <= 0 {
		opts.IndentUnit = DefaultOptions().IndentUnit
	}
	shell := `<html><head></head><body>` +
		`<div id="` + tocID + `"></div>` +
		`<div id="` + packageHierarchy + `"></div>` +
		`</body></html>`
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(shell))

	head := doc.Find("head")
	for _, css := range presentationRules(opts) {
		head.AppendHtml("<style>" + css + "</style>")
	}
	return &Assembler{opts: opts, doc: doc}
}

func presentationRules(opts Options) []string {
	pageBreak := ".page-break { page-break-before: always; }"

	var page strings.Builder
	page.WriteString("@page {\n")
	if opts.PageSize != "" {
		fmt.Fprintf(&page, "  size: %s;\n", opts.PageSize)
	}
	if opts.PageMargins != "" {
		fmt.Fprintf(&page, "  margin: %s;\n", opts.PageMargins)
	}
	if opts.PageNumbers {
		page.WriteString("  @bottom-center {\n    content: counter(page)\n  }\n")
	}
	page.WriteString("}")

	color := opts.LinkColor
	if color == "" {
		color = "inherit"
	}
	link := fmt.Sprintf("a, a:visited { text-decoration: none; color: %s; }", color)

	return []string{pageBreak, page.String(), link}
}

// SetOverview places an HTML fragment before the table of contents.
func (a *Assembler) SetOverview(fragment string) {
	if strings.TrimSpace(fragment) == "" {
		return
	}
	a.doc.Find("#" + overviewID).Remove()
	a.doc.Find("#" + tocID).BeforeHtml(`<div id="` + overviewID + `">` + fragment + `</div>`)
}

// Append adds a section: package pages go into the package hierarchy
// container, class pages to the end of the body. Each section starts on a new
// page. The section body's children are moved, not copied.
func (a *Assembler) Append(s transform.Section) {
	target := a.doc.Find("body").First()
	if s.Page.Kind == doctree.KindPackage {
		target = a.doc.Find("#" + packageHierarchy)
	}
	target.AppendHtml(pageBreakTemplate)
	if s.Body != nil {
		target.AppendSelection(s.Body.Contents())
	}
	a.pages = append(a.pages, s.Page)
}

// Finish appends the shared stylesheet and the table of contents and returns
// the serialized document.
func (a *Assembler) Finish(basePackage string, reg *styles.Registry) (string, error) {
	if reg != nil && reg.Len() > 0 {
		a.doc.Find("head").AppendHtml("<style>" + reg.CSS() + "</style>")
	}

	toc := a.doc.Find("#" + tocID)
	for _, e := range TOCEntries(basePackage, a.pages) {
		toc.AppendHtml(a.renderEntry(e))
	}

	out, err := goquery.OuterHtml(a.doc.Selection)
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return out, nil
}

func (a *Assembler) renderEntry(e TOCEntry) string {
	var sb strings.Builder
	sb.WriteString("<br><a ")
	if e.Anchor != "" {
		sb.WriteString(`name="` + html.EscapeString(e.Anchor) + `" `)
	}
	sb.WriteString(`href="#` + html.EscapeString(e.ID) + `">`)
	sb.WriteString(strings.Repeat("&nbsp;", e.Depth*a.opts.IndentUnit))
	label := html.EscapeString(e.Label)
	if e.Bold {
		label = "<b>" + label + "</b>"
	}
	sb.WriteString(label)
	sb.WriteString("</a>")
	return sb.String()
}

// Assemble merges sections in order into one document.
func Assemble(basePackage string, sections []transform.Section, reg *styles.Registry, opts Options) (string, error) {
	a := New(opts)
	for _, s := range sections {
		a.Append(s)
	}
	return a.Finish(basePackage, reg)
}
