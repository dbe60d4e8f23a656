// Package styles merges the class rules of the embedded stylesheets of many
// pages into one shared stylesheet.
package styles

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// classRule matches a single class selector followed by its declaration block.
var classRule = regexp.MustCompile(`\.\s*([A-Za-z_][\w-]*)\s*\{([^{}]*)\}`)

// Rule is a class selector with its canonical declaration body.
type Rule struct {
	Selector string
	Body     string
}

// ParseRules extracts the `.class { body }` rules of a stylesheet in source order.
// When a selector appears twice, the last body wins, at the position of the
// first occurrence.
func ParseRules(css string) []Rule {
	var rules []Rule
	index := make(map[string]int)
	for _, m := range classRule.FindAllStringSubmatch(css, -1) {
		r := Rule{Selector: m[1], Body: CanonicalBody(m[2])}
		if i, ok := index[r.Selector]; ok {
			rules[i] = r
			continue
		}
		index[r.Selector] = len(rules)
		rules = append(rules, r)
	}
	return rules
}

// CanonicalBody normalizes a declaration block so equivalent bodies compare equal.
func CanonicalBody(body string) string {
	var decls []string
	for _, d := range strings.Split(body, ";") {
		d = strings.Join(strings.Fields(d), " ")
		if d == "" {
			continue
		}
		if prop, value, ok := strings.Cut(d, ":"); ok {
			d = strings.ToLower(strings.TrimSpace(prop)) + ": " + strings.TrimSpace(value)
		}
		decls = append(decls, d)
	}
	return strings.Join(decls, "; ")
}

// Registry holds the canonical classes of the merged document. It only grows.
type Registry struct {
	bodies map[string]string // canonical name -> body
	names  map[string]string // body -> canonical name
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bodies: make(map[string]string),
		names:  make(map[string]string),
	}
}

// Len returns the number of canonical classes.
func (r *Registry) Len() int { return len(r.order) }

// Rules returns the canonical classes in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Rule{Selector: name, Body: r.bodies[name]})
	}
	return out
}

// CSS renders the registry as a stylesheet, one rule per line.
func (r *Registry) CSS() string {
	var sb strings.Builder
	for _, rule := range r.Rules() {
		sb.WriteString(".")
		sb.WriteString(rule.Selector)
		sb.WriteString(" { ")
		sb.WriteString(rule.Body)
		sb.WriteString(" }\n")
	}
	return sb.String()
}

// Merge registers the rules of one page and returns how the page's classes
// must be renamed to point at canonical classes.
func (r *Registry) Merge(rules []Rule) map[string]string {
	renames := make(map[string]string)
	for _, rule := range rules {
		if canonical, ok := r.names[rule.Body]; ok {
			if canonical != rule.Selector {
				renames[rule.Selector] = canonical
			}
			continue
		}
		name := rule.Selector
		if _, taken := r.bodies[name]; taken {
			name = r.freshName()
			renames[rule.Selector] = name
		}
		r.register(name, rule.Body)
	}
	return renames
}

func (r *Registry) register(name, body string) {
	r.bodies[name] = body
	r.names[body] = name
	r.order = append(r.order, name)
}

// freshName returns the first gN not yet registered.
func (r *Registry) freshName() string {
	for i := 0; ; i++ {
		name := "g" + strconv.Itoa(i)
		if _, taken := r.bodies[name]; !taken {
			return name
		}
	}
}

// MergeDocument moves the head stylesheets of a page into the registry and
// renames the class attributes of the page accordingly. The merged <style>
// elements are removed; stylesheets inside the body are left alone. It returns
// the number of elements whose class attribute changed.
func MergeDocument(doc *goquery.Document, reg *Registry) int {
	var rules []Rule
	sheets := doc.Find("head style")
	sheets.Each(func(_ int, s *goquery.Selection) {
		rules = append(rules, ParseRules(s.Text())...)
	})
	sheets.Remove()
	if len(rules) == 0 {
		return 0
	}

	renames := reg.Merge(rules)
	if len(renames) == 0 {
		return 0
	}

	changed := 0
	doc.Find("[class]").Each(func(_ int, el *goquery.Selection) {
		class, _ := el.Attr("class")
		tokens := strings.Fields(class)
		touched := false
		for i, t := range tokens {
			if n, ok := renames[t]; ok {
				tokens[i] = n
				touched = true
			}
		}
		if touched {
			el.SetAttr("class", strings.Join(tokens, " "))
			changed++
		}
	})
	return changed
}
