// Package htmlguard provides an allow-list HTML sanitizer for Go
// applications.
//
// # Overview
//
// htmlguard reads markup with a tolerant tokenizer built on
// golang.org/x/net/html, checks every element and attribute against a
// [Policy], and writes a new string that contains only what the policy
// permits. All text and attribute values are re-escaped on output, so the
// result is safe to embed in an HTML document.
//
// Sanitization never fails on input. Stray '<' characters and unknown
// character references come out as text, tags cut off by the end of input
// are dropped, and mismatched nesting is repaired with an explicit stack of
// open elements.
//
// # Policies
//
// A [Policy] is immutable and may be shared across goroutines. It controls:
//   - Which elements are allowed ([Builder.AllowElements])
//   - Which attributes are allowed per element or globally
//     ([Builder.AllowAttributes])
//   - Which values an attribute accepts ([AttributeBuilder.Matching]), using
//     a [ValueMatcher] such as [Pattern], [OneOf] or [URLProtocols]
//   - How a value is normalized before matching
//     ([AttributeBuilder.Normalizing])
//   - Whether targeted links get a safe rel, bare URLs become links, and
//     how deep elements may nest
//
// Elements that are not allowed are unwrapped, keeping their text, except
// for elements like script, style and iframe whose whole subtree is
// dropped ([RemovalClassOf]).
//
// Policies combine with [Compose]. The result accepts an attribute value
// when either operand accepts it, so composing only ever widens what is
// permitted and the outcome does not depend on operand order.
//
// # Named fragments
//
// [Blocks], [Formatting], [Links], [Styles], [Images], [Media] and [Tables]
// are ready-made policies built once on first use. [SanitizeHTML] composes
// them from the seven toggles in [Options]:
//
//	clean := htmlguard.SanitizeHTML(input, htmlguard.Options{
//		AllowFormatting: true,
//		AllowLinks:      true,
//	})
//
// # Custom policies
//
//	p := htmlguard.NewBuilder().
//		AllowElements("p", "a").
//		AllowAttributes("href").Matching(htmlguard.URLProtocols("https")).OnElements("a").
//		MustBuild()
//	clean := p.Sanitize(input)
//
// # Guarantees
//
// Sanitizing the output again with the same policy returns it unchanged.
// Value matching relies on Go's RE2 engine and single-pass scanners, so the
// work done is linear in the size of the input.
package htmlguard
