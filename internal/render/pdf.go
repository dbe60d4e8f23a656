package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFRenderer converts HTML to PDF with an external engine. Args may use the
// {input} and {output} placeholders; without them the input and output paths
// are appended in that order.
type PDFRenderer struct {
	Command string
	Args    []string
	Log     *slog.Logger
}

func (r *PDFRenderer) Format() string { return "pdf" }

func (r *PDFRenderer) Render(ctx context.Context, html string, outputBase string) (string, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	if r.Command == "" {
		return "", fmt.Errorf("no pdf command configured")
	}

	// The engine reads from a file, so the document is staged in a temp file.
	tmp, err := os.CreateTemp("", "docmerge-*.html")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out := outputBase + ".pdf"
	if err := ensureDir(out); err != nil {
		return "", err
	}

	args := expandArgs(r.Args, tmpPath, out)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debug("running pdf engine", "command", r.Command, "args", args)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", r.Command, err, strings.TrimSpace(stderr.String()))
	}

	pages, err := Verify(out)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", out, err)
	}
	log.Info("pdf written", "path", out, "pages", pages)
	return out, nil
}

func expandArgs(args []string, input, output string) []string {
	var out []string
	placeholders := false
	for _, a := range args {
		if strings.Contains(a, "{input}") || strings.Contains(a, "{output}") {
			placeholders = true
		}
		a = strings.ReplaceAll(a, "{input}", input)
		a = strings.ReplaceAll(a, "{output}", output)
		out = append(out, a)
	}
	if !placeholders {
		out = append(out, input, output)
	}
	return out
}

// Verify opens a rendered PDF and returns its page count.
func Verify(path string) (int, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := reader.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return n, nil
}
