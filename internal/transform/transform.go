// Package transform turns individual documentation pages into sections of the
// merged document: anchors are injected, links rewritten and styles merged.
package transform

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dgallion1/docmerge/internal/doctree"
	"github.com/dgallion1/docmerge/internal/links"
	"github.com/dgallion1/docmerge/internal/parser"
	"github.com/dgallion1/docmerge/internal/styles"
)

// ErrMalformedPage is returned when a class page lacks the element that
// receives the class anchor.
var ErrMalformedPage = errors.New("wrong html structure")

// TOCAnchor is the reserved id of the table of contents.
const TOCAnchor = "toc"

// linkIndent prefixes every link label of a package page.
const linkIndent = "&nbsp;&nbsp;&nbsp;&nbsp;"

// Section is a transformed page ready to be appended to the merged document.
type Section struct {
	Page  doctree.Page
	Body  *goquery.Selection // Body element of the transformed page
	Links int                // Links turned into anchors
	Class int                // Elements whose classes were renamed
}

// Transformer transforms pages in document order. It is not safe for concurrent
// use: the style registry it mutates defines canonical names by visiting order.
type Transformer struct {
	BasePackage string
	Registry    *styles.Registry
	Links       *links.Rewriter
	Charset     string
	Log         *slog.Logger
}

// New returns a transformer writing canonical styles into reg.
func New(basePackage string, reg *styles.Registry, rw *links.Rewriter, cs string, log *slog.Logger) *Transformer {
	if log == nil {
		log = slog.Default()
	}
	return &Transformer{
		BasePackage: basePackage,
		Registry:    reg,
		Links:       rw,
		Charset:     cs,
		Log:         log,
	}
}

// Transform loads and transforms one page.
func (t *Transformer) Transform(page doctree.Page) (Section, error) {
	var doc *goquery.Document
	if page.File == "" {
		doc = parser.EmptyDocument()
	} else {
		var err error
		doc, err = parser.LoadHTML(page.File, t.Charset)
		if err != nil {
			return Section{}, err
		}
	}
	return t.TransformDocument(page, doc)
}

// TransformDocument transforms an already parsed page.
func (t *Transformer) TransformDocument(page doctree.Page, doc *goquery.Document) (Section, error) {
	switch page.Kind {
	case doctree.KindClass:
		return t.transformClass(page, doc)
	case doctree.KindPackage:
		return t.transformPackage(page, doc)
	default:
		return Section{}, fmt.Errorf("unexpected page kind %s for %s", page.Kind, page.ID)
	}
}

func (t *Transformer) transformClass(page doctree.Page, doc *goquery.Document) (Section, error) {
	linkPackageDeclaration(doc, page.PackageID)

	center := doc.Find("table center").First()
	if center.Length() == 0 {
		return Section{}, fmt.Errorf("%w: %s has no class name header", ErrMalformedPage, page.File)
	}
	center.WrapInnerHtml(`<a name="` + html.EscapeString(page.ID) + `"></a>`)

	s := Section{Page: page}
	s.Links = t.Links.Apply(doc, page.PackageID, false)
	s.Class = styles.MergeDocument(doc, t.Registry)
	s.Body = doc.Find("body").First()
	return s, nil
}

// linkPackageDeclaration turns the package name of the source listing's
// `package a.b;` line into a link to the package section.
func linkPackageDeclaration(doc *goquery.Document, packageID string) {
	pre := doc.Find("body pre")
	if pre.Length() != 1 {
		return
	}
	decl := pre.Children().Eq(2)
	if decl.Length() == 0 {
		return
	}
	name := strings.TrimSpace(decl.Text())
	if name == "" {
		return
	}
	decl.SetHtml(`<a href="#` + html.EscapeString(packageID) + `">` + html.EscapeString(name) + `</a>`)
}

func (t *Transformer) transformPackage(page doctree.Page, doc *goquery.Document) (Section, error) {
	if title := parser.Title(doc); !namesPackage(title, page.Dotted) {
		t.Log.Warn("package page title does not match its folder",
			"file", page.File, "title", title, "package", page.Dotted)
	}
	body := doc.Find("body").First()

	body.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		a.SetHtml("<span>" + linkIndent + html.EscapeString(a.Text()) + "</span>")
	})
	body.PrependHtml(t.packageHeader(page))

	s := Section{Page: page}
	s.Links = t.Links.Apply(doc, page.PackageID, true)
	s.Class = styles.MergeDocument(doc, t.Registry)
	s.Body = body
	return s, nil
}

// packageHeader links a package section back to its parent package, or to
// the table of contents for the base package.
func (t *Transformer) packageHeader(page doctree.Page) string {
	parentID := TOCAnchor
	if page.Parent != "" && len(page.Parent) >= len(t.BasePackage) {
		parentID = doctree.PackageID(page.Parent)
	}
	parent := page.Parent
	if parent == "" {
		parent, _ = splitParent(page.Dotted)
	}
	return `<a name="` + html.EscapeString(page.ID) + `" href="#` + html.EscapeString(parentID) + `">` +
		`<span>` + html.EscapeString(parent) + `</span></a>.` + html.EscapeString(page.Name) + `<br><br>`
}

// namesPackage reports whether a package page title agrees with the package's
// dotted name. Exported pages title themselves with the full package name,
// which may extend above the base package. Untitled pages always agree.
func namesPackage(title, dotted string) bool {
	return title == "" || title == dotted ||
		strings.HasSuffix(title, "."+dotted) || strings.HasSuffix(dotted, "."+title)
}

// splitParent splits a dotted name at its last dot.
func splitParent(dotted string) (string, string) {
	i := strings.LastIndex(dotted, ".")
	if i < 0 {
		return "", dotted
	}
	return dotted[:i], dotted[i+1:]
}
