// Package render writes the merged document in its output formats.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docmerge/internal/config"
)

// Renderer writes a merged HTML document as one output artifact.
type Renderer interface {
	Format() string
	// Render writes outputBase plus the format's extension and returns the
	// written path.
	Render(ctx context.Context, html string, outputBase string) (string, error)
}

// ForFormat returns the renderer for an output format name.
func ForFormat(name string, cfg config.Config, log *slog.Logger) (Renderer, error) {
	if log == nil {
		log = slog.Default()
	}
	switch name {
	case "html":
		return &HTMLRenderer{}, nil
	case "pdf":
		return &PDFRenderer{
			Command: cfg.PDFCommand,
			Args:    cfg.PDFArgs,
			Log:     log,
		}, nil
	case "docx":
		return &DOCXRenderer{Log: log}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", name)
	}
}

// HTMLRenderer writes the merged HTML as is.
type HTMLRenderer struct{}

func (r *HTMLRenderer) Format() string { return "html" }

func (r *HTMLRenderer) Render(_ context.Context, html string, outputBase string) (string, error) {
	path := outputBase + ".html"
	if err := writeFile(path, []byte(html)); err != nil {
		return "", err
	}
	return path, nil
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
