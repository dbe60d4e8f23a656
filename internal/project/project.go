// Package project resolves the base package of a collected documentation tree
// and produces the canonical page order used by the merge.
package project

import (
	"errors"
	"slices"
	"strings"

	"github.com/dgallion1/docmerge/internal/doctree"
)

// ErrEmptyBasePackage is returned when the collapsed base package has no name.
var ErrEmptyBasePackage = errors.New("base package has no name")

// Project is a collected tree with its display root resolved.
type Project struct {
	BasePackage string               // Dotted name of the effective root
	Root        *doctree.PackageNode // Effective root
}

// New resolves the base package of a collected tree.
func New(root *doctree.PackageNode) (*Project, error) {
	base, effective, err := ResolveBase(root)
	if err != nil {
		return nil, err
	}
	return &Project{BasePackage: base, Root: effective}, nil
}

// ResolveBase collapses single-child package chains starting at root. A package
// with exactly one sub-package and no classes is folded into the base name;
// the filesystem root itself never contributes its name when folded. The first
// package that does not fold becomes the effective root.
func ResolveBase(root *doctree.PackageNode) (string, *doctree.PackageNode, error) {
	if root == nil {
		return "", nil, ErrEmptyBasePackage
	}
	var parts []string
	current := root
	for len(current.Packages) == 1 && len(current.Classes) == 0 {
		if current != root {
			parts = append(parts, current.Name)
		}
		current = current.Packages[0]
	}
	parts = append(parts, current.Name)

	base := strings.Join(parts, ".")
	if base == "" {
		return "", nil, ErrEmptyBasePackage
	}
	return base, current, nil
}

// OrderedNodes returns every page of the visible tree in document order: a
// package, then its sub-packages (sorted by name, recursively), then its own
// classes sorted by name.
func (p *Project) OrderedNodes() []doctree.Page {
	var pages []doctree.Page
	p.collect(p.Root, p.BasePackage, "", &pages)
	return pages
}

func (p *Project) collect(pkg *doctree.PackageNode, dotted, parent string, pages *[]doctree.Page) {
	pkgID := doctree.PackageID(dotted)
	*pages = append(*pages, doctree.Page{
		Kind:      doctree.KindPackage,
		Name:      pkg.Name,
		File:      pkg.IndexFile,
		ID:        pkgID,
		Dotted:    dotted,
		PackageID: pkgID,
		Parent:    parent,
	})

	for _, child := range sortedPackages(pkg) {
		p.collect(child, dotted+"."+child.Name, dotted, pages)
	}
	for _, c := range sortedClasses(pkg) {
		*pages = append(*pages, doctree.Page{
			Kind:      doctree.KindClass,
			Name:      c.Name,
			File:      c.File,
			ID:        doctree.ClassID(pkgID, c.Name),
			Dotted:    dotted + "." + c.Name,
			PackageID: pkgID,
			Parent:    dotted,
		})
	}
}

// NumPackages counts the packages of the visible tree, the effective root included.
func (p *Project) NumPackages() int {
	var count func(*doctree.PackageNode) int
	count = func(pkg *doctree.PackageNode) int {
		n := 1
		for _, c := range pkg.Packages {
			n += count(c)
		}
		return n
	}
	return count(p.Root)
}

// NumClasses counts the classes of the visible tree.
func (p *Project) NumClasses() int {
	var count func(*doctree.PackageNode) int
	count = func(pkg *doctree.PackageNode) int {
		n := len(pkg.Classes)
		for _, c := range pkg.Packages {
			n += count(c)
		}
		return n
	}
	return count(p.Root)
}

// Outline renders the visible tree as indented plain text, base package first.
func (p *Project) Outline() []string {
	lines := []string{p.BasePackage}
	var walk func(pkg *doctree.PackageNode, level int)
	walk = func(pkg *doctree.PackageNode, level int) {
		indent := strings.Repeat("    ", level)
		for _, child := range sortedPackages(pkg) {
			lines = append(lines, indent+child.Name)
			walk(child, level+1)
		}
		for _, c := range sortedClasses(pkg) {
			lines = append(lines, indent+"  "+c.Name)
		}
	}
	walk(p.Root, 1)
	return lines
}

func sortedPackages(pkg *doctree.PackageNode) []*doctree.PackageNode {
	out := slices.Clone(pkg.Packages)
	slices.SortStableFunc(out, func(a, b *doctree.PackageNode) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func sortedClasses(pkg *doctree.PackageNode) []*doctree.ClassNode {
	out := slices.Clone(pkg.Classes)
	slices.SortStableFunc(out, func(a, b *doctree.ClassNode) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
