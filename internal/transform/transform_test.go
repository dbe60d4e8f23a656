package transform

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmerge/internal/doctree"
	"github.com/dgallion1/docmerge/internal/links"
	"github.com/dgallion1/docmerge/internal/styles"
)

const fooPage = `<html><head><style>.s0 { color: #000080; } .s1 { color: #808080; }</style></head><body>
<table><tr><td><center><font>Foo.java</font></center></td></tr></table>
<pre><span class="s0">package</span> <span class="s1">x</span> <span>com.example.foo</span>;
<a href="../Other.java.html">Other</a> <a href="bar/Bar.java.html">Bar</a></pre>
</body></html>`

func parse(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func newTransformer() *Transformer {
	return New("com.example.foo", styles.NewRegistry(), links.New(nil), "", nil)
}

func classPage() doctree.Page {
	return doctree.Page{
		Kind:      doctree.KindClass,
		Name:      "Foo",
		File:      "Foo.java.html",
		ID:        "com-example-foo-Foo",
		Dotted:    "com.example.foo.Foo",
		PackageID: "com-example-foo",
		Parent:    "com.example.foo",
	}
}

func TestTransformClass(t *testing.T) {
	tr := newTransformer()
	s, err := tr.TransformDocument(classPage(), parse(t, fooPage))
	require.NoError(t, err)

	anchor := s.Body.Find(`center > a[name="com-example-foo-Foo"]`)
	require.Equal(t, 1, anchor.Length(), "class anchor wraps the header")
	assert.Equal(t, "Foo.java", strings.TrimSpace(anchor.Text()))

	decl := s.Body.Find("pre").Children().Eq(2)
	href, _ := decl.Find("a").Attr("href")
	assert.Equal(t, "#com-example-foo", href)
	assert.Equal(t, "com.example.foo", decl.Text())

	var hrefs []string
	s.Body.Find("pre a[href]").Each(func(_ int, a *goquery.Selection) {
		h, _ := a.Attr("href")
		hrefs = append(hrefs, h)
	})
	assert.Equal(t, []string{"#com-example-foo", "#com-example-Other", "#com-example-foo-bar-Bar"}, hrefs)
	assert.Equal(t, 2, s.Links)
	assert.Equal(t, 2, tr.Registry.Len())
}

func TestTransformClassMalformed(t *testing.T) {
	_, err := newTransformer().TransformDocument(classPage(), parse(t, "<html><body><p>nothing</p></body></html>"))
	require.ErrorIs(t, err, ErrMalformedPage)
}

func TestTransformClassWithoutSourceListing(t *testing.T) {
	doc := parse(t, `<html><body><table><tr><td><center>Foo</center></td></tr></table><pre>a</pre><pre>b</pre></body></html>`)
	s, err := newTransformer().TransformDocument(classPage(), doc)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Body.Find("pre a").Length())
}

func TestTransformPackage(t *testing.T) {
	tr := newTransformer()
	page := doctree.Page{
		Kind:      doctree.KindPackage,
		Name:      "bar",
		ID:        "com-example-foo-bar",
		Dotted:    "com.example.foo.bar",
		PackageID: "com-example-foo-bar",
		Parent:    "com.example.foo",
	}
	doc := parse(t, `<html><body><a href="Bar.java.html">Bar</a><a href="baz/index.html">baz</a></body></html>`)
	s, err := tr.TransformDocument(page, doc)
	require.NoError(t, err)

	header := s.Body.Children().First()
	name, _ := header.Attr("name")
	href, _ := header.Attr("href")
	assert.Equal(t, "com-example-foo-bar", name)
	assert.Equal(t, "#com-example-foo", href)
	assert.Equal(t, "com.example.foo", header.Find("span").Text())

	anchors := s.Body.Find("a[href]").Slice(1, 3)
	require.Equal(t, 2, anchors.Length())
	assert.Equal(t, strings.Repeat("\u00a0", 4)+"Bar", anchors.Eq(0).Find("span").Text())

	classHref, _ := anchors.Eq(0).Attr("href")
	pkgHref, _ := anchors.Eq(1).Attr("href")
	pkgStyle, _ := anchors.Eq(1).Attr("style")
	assert.Equal(t, "#com-example-foo-bar-Bar", classHref)
	assert.Equal(t, "#com-example-foo-bar-baz", pkgHref)
	assert.Equal(t, "font-weight: bold", pkgStyle)
}

func TestTransformBasePackageLinksToTOC(t *testing.T) {
	page := doctree.Page{
		Kind:      doctree.KindPackage,
		Name:      "foo",
		ID:        "com-example-foo",
		Dotted:    "com.example.foo",
		PackageID: "com-example-foo",
	}
	s, err := newTransformer().Transform(page)
	require.NoError(t, err, "a package without index page is transformed from a blank page")

	header := s.Body.Children().First()
	href, _ := header.Attr("href")
	assert.Equal(t, "#"+TOCAnchor, href)
	assert.Equal(t, "com.example", header.Find("span").Text())
	assert.Contains(t, s.Body.Text(), "com.example.foo")
}

func TestTransformLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.java.html")
	require.NoError(t, os.WriteFile(path, []byte(fooPage), 0o644))
	page := classPage()
	page.File = path

	s, err := newTransformer().Transform(page)
	require.NoError(t, err)
	assert.Equal(t, page, s.Page)

	page.File = filepath.Join(t.TempDir(), "missing.html")
	_, err = newTransformer().Transform(page)
	require.Error(t, err)
}

func TestTransformRejectsUnknownKind(t *testing.T) {
	_, err := newTransformer().TransformDocument(doctree.Page{ID: "x"}, parse(t, "<html></html>"))
	require.Error(t, err)
}

func TestNamesPackage(t *testing.T) {
	tests := []struct {
		title, dotted string
		want          bool
	}{
		{"", "com.example.foo", true},
		{"com.example.foo", "com.example.foo", true},
		{"org.com.example.foo", "com.example.foo", true},
		{"foo", "com.example.foo", true},
		{"Overview", "com.example.foo", false},
		{"com.example.bar", "com.example.foo", false},
		{"xfoo", "com.example.foo", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, namesPackage(tt.title, tt.dotted), "%q vs %q", tt.title, tt.dotted)
	}
}

func TestTransformPackageWarnsOnTitleMismatch(t *testing.T) {
	var logs bytes.Buffer
	tr := newTransformer()
	tr.Log = slog.New(slog.NewTextHandler(&logs, nil))

	page := doctree.Page{
		Kind:      doctree.KindPackage,
		Name:      "bar",
		ID:        "com-example-foo-bar",
		Dotted:    "com.example.foo.bar",
		PackageID: "com-example-foo-bar",
		Parent:    "com.example.foo",
	}
	_, err := tr.TransformDocument(page, parse(t, `<html><head><title>com.example.foo.bar</title></head><body></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, logs.String())

	_, err = tr.TransformDocument(page, parse(t, `<html><head><title>com.example.baz</title></head><body></body></html>`))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "package page title does not match its folder")
	assert.Contains(t, logs.String(), "title=com.example.baz")
}
