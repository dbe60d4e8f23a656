// Package links rewrites relative hyperlinks between documentation pages into
// fragment anchors of the merged document.
package links

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dgallion1/docmerge/internal/doctree"
)

const packageIndexSuffix = "/index.html"

// Rewriter resolves page links against the package that holds the page.
type Rewriter struct {
	Suffixes []string // Class page suffixes, doctree.DefaultClassSuffixes when empty
}

// New returns a rewriter for the given class page suffixes.
func New(suffixes []string) *Rewriter {
	return &Rewriter{Suffixes: suffixes}
}

// Rewrite turns href, found on a page of the package currentPackageID, into an
// in-document anchor. Fragment-only, absolute and unrecognized links are
// returned unchanged with doctree.KindNone.
func (r *Rewriter) Rewrite(currentPackageID, href string) (string, doctree.Kind) {
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "http") {
		return href, doctree.KindNone
	}

	target, kind := r.stem(href)
	if kind == doctree.KindNone {
		return href, doctree.KindNone
	}

	segments := strings.Split(currentPackageID, doctree.Separator)
	segments = append(segments, strings.Split(target, "/")...)
	return "#" + strings.Join(Normalize(segments), doctree.Separator), kind
}

// stem strips the page suffix from a link and classifies its target.
func (r *Rewriter) stem(href string) (string, doctree.Kind) {
	if target, ok := strings.CutSuffix(href, packageIndexSuffix); ok {
		return target, doctree.KindPackage
	}

	suffixes := r.Suffixes
	if len(suffixes) == 0 {
		suffixes = doctree.DefaultClassSuffixes
	}
	dir, file := "", href
	if i := strings.LastIndex(href, "/"); i >= 0 {
		dir, file = href[:i+1], href[i+1:]
	}
	name, ok := doctree.ClassName(file, suffixes)
	if !ok {
		return href, doctree.KindNone
	}
	return dir + name, doctree.KindClass
}

// Normalize resolves ".." segments: each one removes the segment before it.
// A ".." with nothing left to remove stays in place. Empty and "." segments
// are dropped.
func Normalize(segments []string) []string {
	stack := make([]string, 0, len(segments))
	for _, s := range segments {
		switch s {
		case "", ".":
			continue
		case "..":
			if n := len(stack); n > 0 && stack[n-1] != ".." {
				stack = stack[:n-1]
				continue
			}
		}
		stack = append(stack, s)
	}
	return stack
}

// Apply rewrites every a[href] in the page body. With highlightPackages set,
// links to packages are rendered bold. It returns the number of links turned
// into anchors.
func (r *Rewriter) Apply(doc *goquery.Document, currentPackageID string, highlightPackages bool) int {
	rewritten := 0
	doc.Find("body a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		anchor, kind := r.Rewrite(currentPackageID, href)
		if highlightPackages && kind == doctree.KindPackage {
			a.SetAttr("style", "font-weight: bold")
		}
		if kind != doctree.KindNone {
			rewritten++
		}
		a.SetAttr("href", anchor)
	})
	return rewritten
}
