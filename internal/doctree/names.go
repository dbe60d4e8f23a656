package doctree

import "strings"

// DefaultClassSuffixes are the per-language double extensions of class pages.
var DefaultClassSuffixes = []string{".java.html"}

// ClassName derives the class name from a class page file name or link.
// A known suffix is stripped as a whole; otherwise a name ending in ".html"
// loses that extension and one more dot-delimited segment.
func ClassName(name string, suffixes []string) (string, bool) {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s), true
		}
	}
	stem, ok := strings.CutSuffix(name, ".html")
	if !ok {
		return "", false
	}
	i := strings.LastIndex(stem, ".")
	if i < 0 {
		return "", false
	}
	return stem[:i], true
}

// IsIndexPage reports whether a file name is a package index page.
func IsIndexPage(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "index.html")
}
