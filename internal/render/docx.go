package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/docmerge/internal/doctree"
)

// DOCXRenderer exports a text rendition of the merged document: each section
// anchor becomes a bold heading, each text line a paragraph, and every
// section starts on a new page.
type DOCXRenderer struct {
	Log *slog.Logger
}

func (r *DOCXRenderer) Format() string { return "docx" }

func (r *DOCXRenderer) Render(ctx context.Context, src string, outputBase string) (string, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse merged document: %w", err)
	}

	blocks := docxBlocks(doc.Find("body").Nodes)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w := docx.New().WithDefaultTheme().WithA4Page()
	pending := false
	for _, b := range blocks {
		switch b.kind {
		case blockBreak:
			pending = true
		case blockHeading:
			if pending {
				w.AddParagraph().AddPageBreaks()
				pending = false
			}
			w.AddParagraph().AddText(b.text).Bold().Size("28")
		case blockText:
			if pending {
				w.AddParagraph().AddPageBreaks()
				pending = false
			}
			w.AddParagraph().AddText(b.text)
		}
	}

	out := outputBase + ".docx"
	if err := writeDOCX(out, w); err != nil {
		return "", err
	}
	log.Info("docx written", "path", out, "paragraphs", len(blocks))
	return out, nil
}

func writeDOCX(path string, w *docx.Docx) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadDOCXText returns the non-empty paragraph texts of a .docx file.
func ReadDOCXText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			paras = append(paras, text)
		}
	}
	return paras, nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

type blockKind int

const (
	blockText blockKind = iota
	blockHeading
	blockBreak
)

type block struct {
	kind blockKind
	text string
}

// docxBlocks flattens HTML into headings, text lines and page breaks.
func docxBlocks(nodes []*html.Node) []block {
	var (
		blocks []block
		line   strings.Builder
	)
	flush := func() {
		if t := strings.Join(strings.Fields(line.String()), " "); t != "" {
			blocks = append(blocks, block{kind: blockText, text: t})
		}
		line.Reset()
	}

	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if !pre {
				line.WriteString(n.Data)
				return
			}
			lines := strings.Split(n.Data, "\n")
			for i, l := range lines {
				if i > 0 {
					flush()
				}
				line.WriteString(l)
			}
			return
		case html.ElementNode:
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, pre)
			}
			return
		}

		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style:
			return
		case atom.Br:
			flush()
			return
		case atom.Div:
			if hasClass(n, "page-break") {
				flush()
				blocks = append(blocks, block{kind: blockBreak})
				return
			}
		case atom.A:
			if name := attr(n, "name"); name != "" && name != "toc" {
				flush()
				blocks = append(blocks, block{kind: blockHeading, text: doctree.DisplayName(name)})
				return
			}
		case atom.Pre:
			pre = true
		}

		breaks := isBlock(n.DataAtom)
		if breaks {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if breaks {
			flush()
		}
	}

	for _, n := range nodes {
		walk(n, false)
	}
	flush()
	return blocks
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Table, atom.Tr, atom.Li, atom.Ul, atom.Ol, atom.Dl, atom.Dt, atom.Dd,
		atom.Pre, atom.Hr, atom.Center, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
