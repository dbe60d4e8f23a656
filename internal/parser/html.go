package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// CharsetAuto sniffs the encoding from a BOM or <meta> declaration.
const CharsetAuto = "auto"

// LoadHTML reads and parses a documentation page. Pages are decoded as
// cs (utf-8 when empty); CharsetAuto sniffs the encoding instead.
func LoadHTML(path, cs string) (*goquery.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := ParseHTML(bytes.NewReader(data), cs)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// ParseHTML decodes and parses an HTML page.
func ParseHTML(r io.Reader, cs string) (*goquery.Document, error) {
	contentType := "text/html"
	switch strings.ToLower(cs) {
	case CharsetAuto:
	case "":
		contentType += "; charset=utf-8"
	default:
		contentType += "; charset=" + cs
	}

	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode html: %w", err)
	}
	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// EmptyDocument returns a blank page.
func EmptyDocument() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader("<html><head></head><body></body></html>"))
	return doc
}

// Title returns the text of the page's <title>, or "".
func Title(doc *goquery.Document) string {
	for _, n := range doc.Nodes {
		if t := findTitle(n); t != "" {
			return t
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
