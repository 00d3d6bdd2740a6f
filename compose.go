package htmlguard

import "maps"

// Compose returns a new policy permitting everything base or addition
// permits. Attribute rules present in both are combined so that a value is
// accepted when either side accepts it; composition therefore only ever
// widens what is allowed, and the accept/reject outcome is independent of
// operand order and grouping. A nil operand is treated as DenyAll. Neither
// operand is modified.
func Compose(base, addition *Policy) *Policy {
	if base == nil {
		base = DenyAll()
	}
	if addition == nil {
		addition = DenyAll()
	}

	p := &Policy{
		elements: maps.Clone(base.elements),
		attrs:    make(map[string]attrSet, len(base.attrs)+len(addition.attrs)),
		global:   mergeAttrs(base.global, addition.global),
		safeRel:  base.safeRel || addition.safeRel,
		linkify:  base.linkify || addition.linkify,
		maxDepth: widerDepth(base.maxDepth, addition.maxDepth),
	}
	maps.Copy(p.elements, addition.elements)

	for name, set := range base.attrs {
		p.attrs[name] = mergeAttrs(set, addition.attrs[name])
	}
	for name, set := range addition.attrs {
		if _, ok := p.attrs[name]; !ok {
			p.attrs[name] = maps.Clone(set)
		}
	}
	return p
}

// ComposeAll folds policies into DenyAll in order.
func ComposeAll(policies ...*Policy) *Policy {
	p := DenyAll()
	for _, q := range policies {
		p = Compose(p, q)
	}
	return p
}

// And is shorthand for Compose(p, other).
func (p *Policy) And(other *Policy) *Policy {
	return Compose(p, other)
}

func mergeAttrs(a, b attrSet) attrSet {
	out := make(attrSet, len(a)+len(b))
	maps.Copy(out, a)
	for _, rule := range b {
		out.add(rule)
	}
	return out
}

func widerDepth(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return max(a, b)
}
