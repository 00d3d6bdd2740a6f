package htmlguard

import (
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"
)

// linkPattern finds URLs with an explicit scheme inside plain text.
var linkPattern = xurls.Strict()

// Sanitize applies p to input and returns the sanitized markup. The only
// error is ErrNilPolicy.
func Sanitize(input string, p *Policy) (string, error) {
	return SanitizeEvents(Tokenize(input), p)
}

// SanitizeReader reads markup from r, applies p, and returns the sanitized
// markup. Read errors other than io.EOF are returned along with the output
// produced so far.
func SanitizeReader(r io.Reader, p *Policy) (string, error) {
	if p == nil {
		return "", ErrNilPolicy
	}
	t := NewTokenizer(r)
	out, _ := SanitizeEvents(t.All(), p)
	return out, t.Err()
}

// SanitizeEvents rewrites an event stream according to p. The stream is
// consumed once. Disallowed content never causes an error.
func SanitizeEvents(events iter.Seq[Event], p *Policy) (string, error) {
	if p == nil {
		return "", ErrNilPolicy
	}
	w := newRewriter(p, false)
	w.run(events)
	return w.buf.String(), nil
}

// Sanitize applies p to input. It panics if p is nil, which is a
// programming error rather than a property of the input.
func (p *Policy) Sanitize(input string) string {
	if p == nil {
		panic(ErrNilPolicy)
	}
	return must(Sanitize(input, p))
}

// StripTags removes all markup and returns the decoded text. Content of
// elements such as script and style is dropped.
func StripTags(input string) string {
	w := newRewriter(DenyAll(), true)
	w.run(Tokenize(input))
	return w.buf.String()
}

func must(s string, err error) string {
	if err != nil {
		panic(err)
	}
	return s
}

type elementState int

const (
	emitted elementState = iota
	unwrapped
	suppressed
)

type openElement struct {
	name  string
	state elementState
}

// rewriter holds the state of one pass. The stack mirrors input nesting;
// depth and anchors count emitted elements only, so a second pass over the
// output makes the same decisions as the first.
type rewriter struct {
	p     *Policy
	plain bool

	buf     strings.Builder
	pending strings.Builder
	stack   []openElement
	// stack positions of open elements by name, innermost last
	open map[string][]int

	// index of the outermost suppressed element, -1 when none is open
	suppressFrom int
	depth        int
	anchors      int
}

func newRewriter(p *Policy, plain bool) *rewriter {
	return &rewriter{p: p, plain: plain, suppressFrom: -1, open: make(map[string][]int)}
}

func (w *rewriter) run(events iter.Seq[Event]) {
	for ev := range events {
		switch ev.Type {
		case StartTagEvent:
			w.startTag(ev)
		case EndTagEvent:
			w.endTag(ev.Name)
		case TextEvent:
			w.text(ev.Data)
		}
		// Comments and malformed fragments are dropped.
	}
	w.closeFrom(0)
	w.flush()
}

func (w *rewriter) startTag(ev Event) {
	void := isVoidElement(ev.Name)

	if w.suppressFrom >= 0 {
		if !void {
			w.push(ev.Name, suppressed)
		}
		return
	}

	rule, allowed := w.p.Element(ev.Name)
	if allowed && !w.canNest() {
		allowed = false
	}
	if !allowed {
		if void {
			return
		}
		if RemovalClassOf(ev.Name) == DropSubtree {
			w.suppressFrom = len(w.stack)
			w.push(ev.Name, suppressed)
			return
		}
		w.push(ev.Name, unwrapped)
		return
	}

	w.flush()
	w.writeStartTag(ev.Name, w.filterAttrs(rule, ev.Attrs), void)
	if !void {
		w.push(ev.Name, emitted)
		w.depth++
		if ev.Name == "a" {
			w.anchors++
		}
	}
}

// endTag closes the innermost open element called name. Unmatched end tags
// are ignored, and inside a suppressed subtree only suppressed elements can
// be matched.
func (w *rewriter) endTag(name string) {
	at := w.open[name]
	if len(at) == 0 {
		return
	}
	i := at[len(at)-1]
	if w.suppressFrom >= 0 && i < w.suppressFrom {
		return
	}
	w.closeFrom(i)
}

// closeFrom pops the stack down to length i, closing emitted elements.
func (w *rewriter) closeFrom(i int) {
	for len(w.stack) > i {
		top := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		w.forget(top.name)
		if top.state != emitted {
			continue
		}
		w.flush()
		if !w.plain {
			w.buf.WriteString("</")
			w.buf.WriteString(top.name)
			w.buf.WriteByte('>')
		}
		w.depth--
		if top.name == "a" {
			w.anchors--
		}
	}
	if w.suppressFrom >= len(w.stack) {
		w.suppressFrom = -1
	}
}

func (w *rewriter) push(name string, state elementState) {
	w.open[name] = append(w.open[name], len(w.stack))
	w.stack = append(w.stack, openElement{name: name, state: state})
}

func (w *rewriter) forget(name string) {
	at := w.open[name]
	if len(at) == 1 {
		delete(w.open, name)
		return
	}
	w.open[name] = at[:len(at)-1]
}

func (w *rewriter) canNest() bool {
	return w.p.maxDepth == 0 || w.depth < w.p.maxDepth
}

// text buffers character data until the next emitted tag, so text split
// only by dropped markup is treated as one run.
func (w *rewriter) text(s string) {
	if w.suppressFrom >= 0 {
		return
	}
	if n := len(w.stack); n > 0 && w.stack[n-1].state == emitted && isRawTextElement(w.stack[n-1].name) {
		return
	}
	w.pending.WriteString(s)
}

func (w *rewriter) flush() {
	if w.pending.Len() == 0 {
		return
	}
	s := dropNUL(w.pending.String())
	w.pending.Reset()

	switch {
	case w.plain:
		w.buf.WriteString(s)
	case w.p.linkify && w.anchors == 0 && w.canNest():
		w.writeLinkified(s)
	default:
		w.buf.WriteString(html.EscapeString(s))
	}
}

// dropNUL removes U+0000 from text and attribute values.
func dropNUL(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

func (w *rewriter) filterAttrs(rule ElementRule, attrs []Attribute) []Attribute {
	out := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		r, ok := rule.Attribute(a.Name)
		if !ok {
			continue
		}
		v, ok := r.Accept(a.Value)
		if !ok {
			continue
		}
		out = append(out, Attribute{Name: a.Name, Value: v})
	}
	if w.p.safeRel && (rule.name == "a" || rule.name == "area") {
		out = withSafeRel(out)
	}
	return out
}

// withSafeRel replaces rel with "noopener noreferrer" when a target survives.
func withSafeRel(attrs []Attribute) []Attribute {
	targeted := false
	for _, a := range attrs {
		if a.Name == "target" {
			targeted = true
			break
		}
	}
	if !targeted {
		return attrs
	}
	out := attrs[:0]
	for _, a := range attrs {
		if a.Name != "rel" {
			out = append(out, a)
		}
	}
	return append(out, Attribute{Name: "rel", Value: "noopener noreferrer"})
}

func (w *rewriter) writeStartTag(name string, attrs []Attribute, void bool) {
	if w.plain {
		return
	}
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.Name)
		w.buf.WriteString(`="`)
		w.buf.WriteString(html.EscapeString(dropNUL(a.Value)))
		w.buf.WriteByte('"')
	}
	if void {
		w.buf.WriteString(" />")
		return
	}
	w.buf.WriteByte('>')
}

// writeLinkified escapes s, wrapping each URL the policy accepts as an a
// href in a link.
func (w *rewriter) writeLinkified(s string) {
	last := 0
	for _, m := range linkPattern.FindAllStringIndex(s, -1) {
		raw := s[m[0]:m[1]]
		href, ok := w.p.AcceptAttribute("a", "href", raw)
		if !ok {
			continue
		}
		w.buf.WriteString(html.EscapeString(s[last:m[0]]))
		w.buf.WriteString(`<a href="`)
		w.buf.WriteString(html.EscapeString(href))
		w.buf.WriteString(`">`)
		w.buf.WriteString(html.EscapeString(raw))
		w.buf.WriteString(`</a>`)
		last = m[1]
	}
	w.buf.WriteString(html.EscapeString(s[last:]))
}

func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// isRawTextElement reports elements whose content the tokenizer delivers
// undecoded. Such content is never echoed.
func isRawTextElement(tag string) bool {
	switch tag {
	case "iframe", "noembed", "noframes", "noscript", "plaintext",
		"script", "style", "xmp":
		return true
	}
	return false
}
