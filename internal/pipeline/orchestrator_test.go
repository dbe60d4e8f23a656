package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmerge/internal/collector"
	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/doctree"
	"github.com/dgallion1/docmerge/internal/metrics"
	"github.com/dgallion1/docmerge/internal/transform"
)

const classPage = `<html><head><style>.s0 { color: #000080; font-weight: bold; }</style></head><body>
<table><tr><td><center><font>A.java</font></center></td></tr></table>
<pre><span class="s0">package</span> <span>x</span> <span>pkg1</span>;</pre>
</body></html>`

const indexPage = `<html><head><title>pkg1</title><style>.s0 { color: #000080; font-weight: bold; }</style></head>
<body><a href="A.java.html">A</a></body></html>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Formats = nil
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeFile(t, filepath.Join(root, "pkg1", "index.html"), indexPage)
	writeFile(t, filepath.Join(root, "pkg1", "A.java.html"), classPage)

	o := NewOrchestrator(testConfig(), metrics.New(nil), nil)
	job := NewJob(root, "", nil)
	res, err := o.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "pkg1", res.BasePackage)
	require.Len(t, res.Pages, 2)
	assert.Equal(t, doctree.KindPackage, res.Pages[0].Kind)
	assert.Equal(t, "pkg1", res.Pages[0].ID)
	assert.Equal(t, doctree.KindClass, res.Pages[1].Kind)
	assert.Equal(t, "pkg1-A", res.Pages[1].ID)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find("div.page-break").Length())
	assert.Equal(t, 2, doc.Find("#toc a").Length())
	assert.Len(t, res.TOC, 2)

	assert.Equal(t, 1, doc.Find(`#package-hierarchy a[name="pkg1"]`).Length())
	assert.Equal(t, 1, doc.Find(`center a[name="pkg1-A"]`).Length())
	href, _ := doc.Find(`#package-hierarchy a`).Last().Attr("href")
	assert.Equal(t, "#pkg1-A", href)

	// Both pages declare the same rule body, so one canonical rule remains.
	last := doc.Find("head style").Last().Text()
	assert.Equal(t, 1, strings.Count(last, "{"))

	snap := o.GetJob(job.ID).Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Progress.PagesDone)
	assert.Same(t, res, o.Latest())
}

func TestRunDashedBasePackage(t *testing.T) {
	root := filepath.Join(t.TempDir(), "api-docs")
	writeFile(t, filepath.Join(root, "pkg1", "index.html"), indexPage)
	writeFile(t, filepath.Join(root, "pkg1", "A.java.html"), classPage)
	writeFile(t, filepath.Join(root, "pkg2", "index.html"), `<html><body></body></html>`)

	o := NewOrchestrator(testConfig(), metrics.New(nil), nil)
	res, err := o.Run(context.Background(), NewJob(root, "", nil))
	require.NoError(t, err)
	assert.Equal(t, "api-docs", res.BasePackage)

	require.NotEmpty(t, res.TOC)
	assert.Equal(t, "toc", res.TOC[0].Anchor)
	assert.Equal(t, 0, res.TOC[0].Depth)
	assert.Equal(t, "api-docs", res.TOC[0].Label)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(`a[name="toc"]`).Length())
	doc.Find(`a[href^="#"]`).Each(func(_ int, a *goquery.Selection) {
		target := strings.TrimPrefix(a.AttrOr("href", ""), "#")
		assert.Equal(t, 1, doc.Find(`a[name="`+target+`"]`).Length(), "link to #%s resolves", target)
	})
}

func TestRunWritesHTML(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeFile(t, filepath.Join(root, "pkg1", "A.java.html"), classPage)
	out := filepath.Join(t.TempDir(), "out", "merged")

	o := NewOrchestrator(testConfig(), nil, nil)
	res, err := o.Run(context.Background(), NewJob(root, out, []string{"html"}))
	require.NoError(t, err)
	require.Equal(t, []string{out + ".html"}, res.Outputs)

	data, err := os.ReadFile(out + ".html")
	require.NoError(t, err)
	assert.Equal(t, res.HTML, string(data))
}

func TestRunFailures(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		o := NewOrchestrator(testConfig(), nil, nil)
		job := NewJob(filepath.Join(t.TempDir(), "missing"), "", nil)
		_, err := o.Run(context.Background(), job)
		require.ErrorIs(t, err, collector.ErrInvalidRoot)
		assert.Equal(t, StatusFailed, job.Snapshot().Status)
		assert.Nil(t, o.Latest())
	})

	t.Run("malformed class page", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "root")
		writeFile(t, filepath.Join(root, "pkg1", "A.java.html"), "<html><body><p>no header</p></body></html>")
		o := NewOrchestrator(testConfig(), nil, nil)
		_, err := o.Run(context.Background(), NewJob(root, "", nil))
		require.ErrorIs(t, err, transform.ErrMalformedPage)
	})

	t.Run("cancelled", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "root")
		writeFile(t, filepath.Join(root, "pkg1", "A.java.html"), classPage)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o := NewOrchestrator(testConfig(), nil, nil)
		_, err := o.Run(ctx, NewJob(root, "", nil))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkerProcessesSubmittedJobs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeFile(t, filepath.Join(root, "pkg1", "A.java.html"), classPage)

	o := NewOrchestrator(testConfig(), nil, nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(root, "", nil)
	require.NoError(t, o.Submit(job))

	require.Eventually(t, func() bool {
		return o.GetJob(job.ID).Snapshot().Status == StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	require.NotNil(t, o.Latest())
	assert.Equal(t, "pkg1", o.Latest().BasePackage)
}
