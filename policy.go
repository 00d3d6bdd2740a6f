package htmlguard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RemovalClass says what happens to a disallowed element.
type RemovalClass int

const (
	// KeepContent drops the tags and keeps processing the children as if
	// the element were unwrapped.
	KeepContent RemovalClass = iota
	// DropSubtree drops the element together with everything inside it.
	DropSubtree
)

func (c RemovalClass) String() string {
	if c == DropSubtree {
		return "drop-subtree"
	}
	return "keep-content"
}

// dropSubtree lists the elements whose content is meaningless or dangerous
// once the element itself is gone.
var dropSubtree = map[string]struct{}{
	"applet":    {},
	"embed":     {},
	"frame":     {},
	"frameset":  {},
	"iframe":    {},
	"math":      {},
	"noembed":   {},
	"noframes":  {},
	"noscript":  {},
	"object":    {},
	"plaintext": {},
	"script":    {},
	"select":    {},
	"style":     {},
	"svg":       {},
	"template":  {},
	"textarea":  {},
	"title":     {},
	"xmp":       {},
}

// RemovalClassOf returns the removal class of the named element.
func RemovalClassOf(name string) RemovalClass {
	if _, ok := dropSubtree[strings.ToLower(name)]; ok {
		return DropSubtree
	}
	return KeepContent
}

// Normalizer rewrites an attribute value before it is matched. The
// normalized value is what gets emitted.
type Normalizer func(value string) string

type valueRule struct {
	normalize Normalizer
	matcher   ValueMatcher
}

func (v valueRule) unrestricted() bool {
	return v.normalize == nil && v.matcher == nil
}

// AttributeRule governs one attribute name. It holds one or more value
// alternatives; a value is accepted when any alternative accepts it.
type AttributeRule struct {
	name   string
	values []valueRule
}

// Name returns the attribute name.
func (r *AttributeRule) Name() string { return r.name }

// Unrestricted reports whether any value is accepted unchanged.
func (r *AttributeRule) Unrestricted() bool {
	return len(r.values) == 1 && r.values[0].unrestricted()
}

// Accept returns the value to emit and whether value passes the rule.
func (r *AttributeRule) Accept(value string) (string, bool) {
	for _, v := range r.values {
		out := value
		if v.normalize != nil {
			out = v.normalize(out)
		}
		if v.matcher == nil || v.matcher.Matches(out) {
			return out, true
		}
	}
	return "", false
}

// union returns a rule accepting what either r or o accepts.
func (r *AttributeRule) union(o *AttributeRule) *AttributeRule {
	if r.Unrestricted() {
		return r
	}
	if o.Unrestricted() {
		return o
	}
	values := make([]valueRule, 0, len(r.values)+len(o.values))
	values = append(values, r.values...)
	values = append(values, o.values...)
	return &AttributeRule{name: r.name, values: values}
}

type attrSet map[string]*AttributeRule

func (s attrSet) add(rule *AttributeRule) {
	if prev, ok := s[rule.name]; ok {
		s[rule.name] = prev.union(rule)
		return
	}
	s[rule.name] = rule
}

func (s attrSet) names() []string {
	return slices.Sorted(maps.Keys(s))
}

// ElementRule is the read-only view of an allowed element.
type ElementRule struct {
	name   string
	attrs  attrSet
	global attrSet
}

// Name returns the element name.
func (e ElementRule) Name() string { return e.name }

// Removal returns the removal class that applies when the element is not
// allowed.
func (e ElementRule) Removal() RemovalClass { return RemovalClassOf(e.name) }

// Attribute returns the rule for attr, considering global rules as well.
func (e ElementRule) Attribute(attr string) (*AttributeRule, bool) {
	local, lok := e.attrs[attr]
	global, gok := e.global[attr]
	switch {
	case lok && gok:
		return global.union(local), true
	case lok:
		return local, true
	case gok:
		return global, true
	}
	return nil, false
}

// Attributes returns the sorted names of the element specific attributes.
func (e ElementRule) Attributes() []string {
	return e.attrs.names()
}

// Policy is an immutable allow-list of elements and attributes. Build one
// with NewBuilder or combine existing ones with Compose. A Policy may be
// shared by any number of goroutines.
type Policy struct {
	elements map[string]struct{}
	attrs    map[string]attrSet
	global   attrSet

	safeRel  bool
	linkify  bool
	maxDepth int
}

// AllowsElement reports whether the named element may appear in output.
func (p *Policy) AllowsElement(name string) bool {
	_, ok := p.elements[strings.ToLower(name)]
	return ok
}

// Element returns the rule of an allowed element.
func (p *Policy) Element(name string) (ElementRule, bool) {
	name = strings.ToLower(name)
	if _, ok := p.elements[name]; !ok {
		return ElementRule{}, false
	}
	return ElementRule{name: name, attrs: p.attrs[name], global: p.global}, true
}

// Elements returns the sorted names of all allowed elements.
func (p *Policy) Elements() []string {
	return slices.Sorted(maps.Keys(p.elements))
}

// GlobalAttributes returns the sorted names of attributes allowed on every
// allowed element.
func (p *Policy) GlobalAttributes() []string {
	return p.global.names()
}

// AllowsAttribute reports whether attr may appear on element for at least
// some value.
func (p *Policy) AllowsAttribute(element, attr string) bool {
	e, ok := p.Element(element)
	if !ok {
		return false
	}
	_, ok = e.Attribute(strings.ToLower(attr))
	return ok
}

// AcceptAttribute evaluates a single (element, attribute, value) triple and
// returns the value that would be emitted.
func (p *Policy) AcceptAttribute(element, attr, value string) (string, bool) {
	e, ok := p.Element(element)
	if !ok {
		return "", false
	}
	rule, ok := e.Attribute(strings.ToLower(attr))
	if !ok {
		return "", false
	}
	return rule.Accept(value)
}

// SafeRelOnTargetLinks reports whether targeted links get rel="noopener noreferrer".
func (p *Policy) SafeRelOnTargetLinks() bool { return p.safeRel }

// LinkifyEnabled reports whether bare URLs in text are turned into links.
func (p *Policy) LinkifyEnabled() bool { return p.linkify }

// MaxNestingDepth returns the nesting limit, 0 meaning unlimited.
func (p *Policy) MaxNestingDepth() int { return p.maxDepth }

// Builder accumulates allow rules. It is not safe for concurrent use; the
// Policy it builds is.
type Builder struct {
	elements map[string]struct{}
	attrs    map[string]attrSet
	global   attrSet

	safeRel  bool
	linkify  bool
	maxDepth int

	errs []error
}

// NewBuilder returns a Builder that allows nothing.
func NewBuilder() *Builder {
	return &Builder{
		elements: make(map[string]struct{}),
		attrs:    make(map[string]attrSet),
		global:   make(attrSet),
	}
}

// AllowElements adds elements to the allow-list.
func (b *Builder) AllowElements(names ...string) *Builder {
	for _, name := range names {
		if n, ok := b.elementName(name); ok {
			b.elements[n] = struct{}{}
		}
	}
	return b
}

// AllowAttributes starts an attribute rule. The rule takes effect when
// OnElements or Globally is called.
func (b *Builder) AllowAttributes(names ...string) *AttributeBuilder {
	ab := &AttributeBuilder{b: b}
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if !validAttributeName(n) {
			b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrInvalidAttributeName, name))
			continue
		}
		ab.names = append(ab.names, n)
	}
	return ab
}

// RequireSafeRelOnTargetLinks makes a and area elements that keep a target
// attribute carry rel="noopener noreferrer" in place of any other rel.
func (b *Builder) RequireSafeRelOnTargetLinks() *Builder {
	b.safeRel = true
	return b
}

// Linkify turns bare URLs found in text into links wherever the policy
// would accept an a element with that href.
func (b *Builder) Linkify() *Builder {
	b.linkify = true
	return b
}

// MaxDepth unwraps elements nested deeper than n, keeping their content.
// Zero disables the limit.
func (b *Builder) MaxDepth(n int) *Builder {
	if n < 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: %d", ErrNegativeDepth, n))
		return b
	}
	b.maxDepth = n
	return b
}

// Include adds the elements, attribute rules and flags of p, so a builder
// can start from an existing policy and extend it. A depth limit on p is
// taken only when the builder has none.
func (b *Builder) Include(p *Policy) *Builder {
	if p == nil {
		return b
	}
	maps.Copy(b.elements, p.elements)
	for name, set := range p.attrs {
		dst, ok := b.attrs[name]
		if !ok {
			dst = make(attrSet, len(set))
			b.attrs[name] = dst
		}
		for _, rule := range set {
			dst.add(rule)
		}
	}
	for _, rule := range p.global {
		b.global.add(rule)
	}
	b.safeRel = b.safeRel || p.safeRel
	b.linkify = b.linkify || p.linkify
	if b.maxDepth == 0 {
		b.maxDepth = p.maxDepth
	}
	return b
}

// Build freezes the accumulated rules into a Policy. The builder may be
// reused afterwards without affecting the result.
func (b *Builder) Build() (*Policy, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	p := &Policy{
		elements: maps.Clone(b.elements),
		attrs:    make(map[string]attrSet, len(b.attrs)),
		global:   maps.Clone(b.global),
		safeRel:  b.safeRel,
		linkify:  b.linkify,
		maxDepth: b.maxDepth,
	}
	for name, set := range b.attrs {
		p.attrs[name] = maps.Clone(set)
	}
	return p, nil
}

// MustBuild is like Build but panics on a construction error.
func (b *Builder) MustBuild() *Policy {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

func (b *Builder) elementName(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if !validElementName(n) {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", ErrInvalidElementName, name))
		return "", false
	}
	return n, true
}

// AttributeBuilder configures a pending attribute rule.
type AttributeBuilder struct {
	b         *Builder
	names     []string
	matcher   ValueMatcher
	normalize Normalizer
}

// Matching restricts values to those accepted by m. A later call replaces
// an earlier one.
func (ab *AttributeBuilder) Matching(m ValueMatcher) *AttributeBuilder {
	if m == nil {
		ab.b.errs = append(ab.b.errs, ErrNilMatcher)
		return ab
	}
	ab.matcher = m
	return ab
}

// Normalizing applies fn to each value before matching.
func (ab *AttributeBuilder) Normalizing(fn Normalizer) *AttributeBuilder {
	ab.normalize = fn
	return ab
}

// OnElements binds the rule to the given elements. It does not allow the
// elements themselves.
func (ab *AttributeBuilder) OnElements(names ...string) *Builder {
	for _, name := range names {
		n, ok := ab.b.elementName(name)
		if !ok {
			continue
		}
		set, ok := ab.b.attrs[n]
		if !ok {
			set = make(attrSet)
			ab.b.attrs[n] = set
		}
		for _, attr := range ab.names {
			set.add(ab.rule(attr))
		}
	}
	return ab.b
}

// Globally binds the rule to every allowed element.
func (ab *AttributeBuilder) Globally() *Builder {
	for _, attr := range ab.names {
		ab.b.global.add(ab.rule(attr))
	}
	return ab.b
}

func (ab *AttributeBuilder) rule(name string) *AttributeRule {
	return &AttributeRule{
		name:   name,
		values: []valueRule{{normalize: ab.normalize, matcher: ab.matcher}},
	}
}

func validElementName(name string) bool {
	if name == "" || !isASCIILower(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isASCIILower(c) && !isASCIIDigit(c) && c != '-' {
			return false
		}
	}
	return true
}

func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isASCIILower(c), c == '_', c == ':':
		case i > 0 && (isASCIIDigit(c) || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func isASCIILower(c byte) bool { return 'a' <= c && c <= 'z' }
func isASCIIDigit(c byte) bool { return '0' <= c && c <= '9' }
