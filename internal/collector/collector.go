// Package collector walks a documentation directory and builds the package tree.
package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docmerge/internal/doctree"
)

// ErrInvalidRoot is returned when the input root is missing or not a directory.
var ErrInvalidRoot = errors.New("invalid root folder")

// Stats counts what a walk found.
type Stats struct {
	Packages int
	Classes  int
	Skipped  []string // Files that are neither index nor class pages
}

// Collector builds a doctree.PackageNode from a directory.
type Collector struct {
	suffixes []string
	log      *slog.Logger
}

// New returns a collector recognizing the given class page suffixes.
func New(suffixes []string, log *slog.Logger) *Collector {
	if len(suffixes) == 0 {
		suffixes = doctree.DefaultClassSuffixes
	}
	if log == nil {
		log = slog.Default()
	}
	return &Collector{suffixes: suffixes, log: log}
}

// Collect walks root and returns the root package. The root package is named
// after the directory itself.
func (c *Collector) Collect(root string) (*doctree.PackageNode, Stats, error) {
	var stats Stats

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %s does not exist", ErrInvalidRoot, root)
	}
	if !info.IsDir() {
		return nil, stats, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, root)
	}

	pkg := doctree.NewPackage(filepath.Base(abs))
	stats.Packages++
	if err := c.walk(abs, pkg, &stats); err != nil {
		return nil, stats, err
	}
	return pkg, stats, nil
}

func (c *Collector) walk(dir string, pkg *doctree.PackageNode, stats *Stats) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("collect %s: %w", dir, err)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			child := pkg.AddPackage(doctree.NewPackage(e.Name()))
			stats.Packages++
			if err := c.walk(path, child, stats); err != nil {
				return err
			}
		case e.Type().IsRegular():
			c.classify(path, e.Name(), pkg, stats)
		}
	}
	return nil
}

func (c *Collector) classify(path, name string, pkg *doctree.PackageNode, stats *Stats) {
	if doctree.IsIndexPage(name) {
		if pkg.IndexFile != "" {
			c.log.Debug("replacing index page", "package", pkg.Name, "old", pkg.IndexFile, "new", path)
		}
		pkg.SetIndexFile(path)
		return
	}
	if className, ok := doctree.ClassName(name, c.suffixes); ok {
		pkg.AddClass(&doctree.ClassNode{Name: className, File: path})
		stats.Classes++
		return
	}
	c.log.Warn("unrecognized file", "path", path)
	stats.Skipped = append(stats.Skipped, path)
}
