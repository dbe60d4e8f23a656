package render

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmerge/internal/config"
)

const mergedDoc = `<html><head><style>.a { color: red; }</style></head><body>
<div id="toc"><br><a name="toc" href="#pkg1"><b>pkg1</b></a><br><a href="#pkg1-Foo">&nbsp;Foo</a></div>
<div id="package-hierarchy"><div class="page-break"></div><a name="pkg1" href="#toc"><span>pkg1</span></a>.pkg1<br><br><a href="#pkg1-Foo">Foo</a></div>
<div class="page-break"></div><table><tr><td><center><a name="pkg1-Foo">Foo.java</a></center></td></tr></table>
<pre>line one
line two</pre>
</body></html>`

func TestForFormat(t *testing.T) {
	cfg := config.Default()
	for _, name := range config.Formats {
		r, err := ForFormat(name, cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, name, r.Format())
	}
	_, err := ForFormat("epub", cfg, nil)
	assert.Error(t, err)
}

func TestHTMLRenderer(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "output")
	path, err := (&HTMLRenderer{}).Render(context.Background(), mergedDoc, base)
	require.NoError(t, err)
	assert.Equal(t, base+".html", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mergedDoc, string(data))
}

func TestExpandArgs(t *testing.T) {
	assert.Equal(t, []string{"in.html", "out.pdf"}, expandArgs([]string{"{input}", "{output}"}, "in.html", "out.pdf"))
	assert.Equal(t, []string{"--quiet", "in.html", "out.pdf"}, expandArgs([]string{"--quiet"}, "in.html", "out.pdf"))
	assert.Equal(t, []string{"-o", "out.pdf", "in.html"}, expandArgs([]string{"-o", "{output}", "{input}"}, "in.html", "out.pdf"))
}

func TestPDFRendererCommandFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	r := &PDFRenderer{Command: "false"}
	_, err := r.Render(context.Background(), mergedDoc, filepath.Join(t.TempDir(), "output"))
	require.Error(t, err)
}

func TestPDFRendererNoCommand(t *testing.T) {
	_, err := (&PDFRenderer{}).Render(context.Background(), mergedDoc, filepath.Join(t.TempDir(), "output"))
	require.Error(t, err)
}

func TestVerifyRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))
	_, err := Verify(path)
	assert.Error(t, err)
}

func TestDocxBlocks(t *testing.T) {
	r := &DOCXRenderer{}
	path, err := r.Render(context.Background(), mergedDoc, filepath.Join(t.TempDir(), "output"))
	require.NoError(t, err)

	paras, err := ReadDOCXText(path)
	require.NoError(t, err)
	assert.Contains(t, paras, "pkg1")
	assert.Contains(t, paras, "pkg1.Foo")
	assert.Contains(t, paras, "line one")
	assert.Contains(t, paras, "line two")
	assert.NotContains(t, paras, ".a { color: red; }")
}

func TestDocxBlocksStructure(t *testing.T) {
	blocks := docxBlocksFromString(t, mergedDoc)

	var kinds []blockKind
	for _, b := range blocks {
		kinds = append(kinds, b.kind)
	}
	breaks := 0
	for _, k := range kinds {
		if k == blockBreak {
			breaks++
		}
	}
	assert.Equal(t, 2, breaks)
	assert.Equal(t, block{kind: blockHeading, text: "pkg1.Foo"}, blocks[len(blocks)-3])
}

func docxBlocksFromString(t *testing.T, src string) []block {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return docxBlocks(doc.Find("body").Nodes)
}
