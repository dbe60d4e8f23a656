package doctree

import "strings"

// Separator joins package path segments inside a node id.
const Separator = "-"

// Kind tags a documentation page or a link target.
type Kind int

const (
	KindNone Kind = iota
	KindPackage
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	default:
		return "none"
	}
}

// ClassNode is a single class page.
type ClassNode struct {
	Name string // Class name (file name without the class suffix)
	File string // Source page path
}

// PackageNode is a directory of the documentation tree.
type PackageNode struct {
	Name      string         // Directory name
	IndexFile string         // Package index page, empty if the directory has none
	Classes   []*ClassNode   // Class pages directly in this directory
	Packages  []*PackageNode // Sub-directories
}

// NewPackage returns an empty package node.
func NewPackage(name string) *PackageNode {
	return &PackageNode{Name: name}
}

// SetIndexFile records the package index page. A later call replaces an earlier one.
func (p *PackageNode) SetIndexFile(path string) {
	p.IndexFile = path
}

// AddClass appends a class page.
func (p *PackageNode) AddClass(c *ClassNode) {
	p.Classes = append(p.Classes, c)
}

// AddPackage appends a sub-package, or returns the existing sibling of the same name.
func (p *PackageNode) AddPackage(child *PackageNode) *PackageNode {
	if existing := p.Package(child.Name); existing != nil {
		return existing
	}
	p.Packages = append(p.Packages, child)
	return child
}

// Package returns the direct sub-package with the given name.
func (p *PackageNode) Package(name string) *PackageNode {
	for _, c := range p.Packages {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Page is one entry of the ordered document: a package or a class page.
type Page struct {
	Kind      Kind
	Name      string // Short name: last package segment or class name
	File      string // Source HTML page, empty for a package without an index page
	ID        string // Node id, unique across the document
	Dotted    string // Full dotted name, e.g. com.example.Foo
	PackageID string // Id of the package holding the page (its own id for a package)
	Parent    string // Dotted name of the parent package, empty for the effective root
}

// PackageID turns a dotted package name into a node id.
func PackageID(dotted string) string {
	dotted = strings.TrimSpace(dotted)
	dotted = strings.TrimSuffix(dotted, ";")
	return strings.ReplaceAll(dotted, ".", Separator)
}

// ClassID returns the node id of a class inside a package.
func ClassID(packageID, className string) string {
	return packageID + Separator + className
}

// DisplayName turns a node id back into its dotted form.
func DisplayName(id string) string {
	return strings.ReplaceAll(id, Separator, ".")
}
