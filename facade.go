package htmlguard

import (
	"strings"
	"sync"
)

// Options selects which named fragments are composed into the effective
// policy. The zero value allows no markup at all.
type Options struct {
	AllowBlocks     bool
	AllowFormatting bool
	AllowLinks      bool
	AllowStyles     bool
	AllowImages     bool
	AllowTables     bool
	AllowMedia      bool
}

// AllOptions enables every fragment.
var AllOptions = Options{
	AllowBlocks:     true,
	AllowFormatting: true,
	AllowLinks:      true,
	AllowStyles:     true,
	AllowImages:     true,
	AllowTables:     true,
	AllowMedia:      true,
}

// fragment pairs a toggle with its policy, in composition order.
type fragment struct {
	enabled func(Options) bool
	policy  func() *Policy
}

var fragments = [...]fragment{
	{func(o Options) bool { return o.AllowBlocks }, Blocks},
	{func(o Options) bool { return o.AllowFormatting }, Formatting},
	{func(o Options) bool { return o.AllowLinks }, Links},
	{func(o Options) bool { return o.AllowStyles }, Styles},
	{func(o Options) bool { return o.AllowImages }, Images},
	{func(o Options) bool { return o.AllowMedia }, Media},
	{func(o Options) bool { return o.AllowTables }, Tables},
}

var effectivePolicies [1 << len(fragments)]func() *Policy

func init() {
	for mask := range effectivePolicies {
		effectivePolicies[mask] = sync.OnceValue(func() *Policy {
			p := DenyAll()
			for i, f := range fragments {
				if mask&(1<<i) != 0 {
					p = Compose(p, f.policy())
				}
			}
			return p
		})
	}
}

func (o Options) mask() int {
	m := 0
	for i, f := range fragments {
		if f.enabled(o) {
			m |= 1 << i
		}
	}
	return m
}

// EffectivePolicy returns DenyAll composed with every enabled fragment in
// the order blocks, formatting, links, styles, images, media, tables. The
// result is built once per combination and shared.
func EffectivePolicy(opts Options) *Policy {
	return effectivePolicies[opts.mask()]()
}

// SanitizeHTML sanitizes value with the policy selected by opts. Empty or
// whitespace-only input is returned unchanged.
func SanitizeHTML(value string, opts Options) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return EffectivePolicy(opts).Sanitize(value)
}

// SanitizeNullable is SanitizeHTML for optional values: nil stays nil and
// blank input is returned as is.
func SanitizeNullable(value *string, opts Options) *string {
	if value == nil {
		return nil
	}
	if strings.TrimSpace(*value) == "" {
		return value
	}
	out := SanitizeHTML(*value, opts)
	return &out
}
