package htmlguard

import (
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
)

// EventType identifies the kind of a structural Event.
type EventType int

const (
	// StartTagEvent is an opening tag, self-closing or not.
	StartTagEvent EventType = iota + 1
	// EndTagEvent is a closing tag.
	EndTagEvent
	// TextEvent is character data with references decoded.
	TextEvent
	// CommentEvent is a comment or a doctype declaration.
	CommentEvent
	// MalformedEvent is a fragment that could not form a token, such as a
	// tag left open at the end of input.
	MalformedEvent
)

func (t EventType) String() string {
	switch t {
	case StartTagEvent:
		return "StartTag"
	case EndTagEvent:
		return "EndTag"
	case TextEvent:
		return "Text"
	case CommentEvent:
		return "Comment"
	case MalformedEvent:
		return "Malformed"
	}
	return "Unknown"
}

// Attribute is a single name/value pair of a start tag. Name is lower-cased
// and Value has character references decoded.
type Attribute struct {
	Name  string
	Value string
}

// Event is one item of the stream produced by a Tokenizer.
type Event struct {
	Type EventType

	// Name is the lower-cased element name of tag events.
	Name string

	// Attrs holds the attributes of a start tag in source order. A repeated
	// attribute keeps its first position and its last value.
	Attrs []Attribute

	// SelfClosing reports a trailing slash on a start tag.
	SelfClosing bool

	// Data is the decoded text of a text event and the raw source of comment
	// and malformed events.
	Data string
}

// Tokenizer turns markup into a lazy sequence of events. It never fails on
// malformed input: stray '<' and unknown references come out as text, and a
// tag cut off by the end of input comes out as a single MalformedEvent.
type Tokenizer struct {
	z    *html.Tokenizer
	err  error
	done bool
}

// NewTokenizer returns a Tokenizer reading markup from r.
func NewTokenizer(r io.Reader) *Tokenizer {
	z := html.NewTokenizer(r)
	z.AllowCDATA(true)
	return &Tokenizer{z: z}
}

// Tokenize returns the events of input. Each iteration starts a fresh
// tokenizer, so the sequence can be ranged over more than once.
func Tokenize(input string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		t := NewTokenizer(strings.NewReader(input))
		for {
			ev, ok := t.Next()
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

// All returns the remaining events of t. Unlike Tokenize the sequence is
// single-use since it drains the underlying reader.
func (t *Tokenizer) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			ev, ok := t.Next()
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

// Err returns the first read error other than io.EOF.
func (t *Tokenizer) Err() error {
	return t.err
}

// Next returns the next event. The boolean is false once input is exhausted.
func (t *Tokenizer) Next() (Event, bool) {
	if t.done {
		return Event{}, false
	}

	switch tt := t.z.Next(); tt {
	case html.ErrorToken:
		t.done = true
		if err := t.z.Err(); err != io.EOF {
			t.err = err
			return Event{}, false
		}
		// Bytes still pending at EOF belong to a tag that never closed.
		if raw := t.z.Raw(); len(raw) > 0 {
			return Event{Type: MalformedEvent, Data: string(raw)}, true
		}
		return Event{}, false

	case html.TextToken:
		return Event{Type: TextEvent, Data: string(t.z.Text())}, true

	case html.StartTagToken, html.SelfClosingTagToken:
		return t.startTag(tt == html.SelfClosingTagToken), true

	case html.EndTagToken:
		name, _ := t.z.TagName()
		return Event{Type: EndTagEvent, Name: string(name)}, true

	default:
		// Comments and doctypes.
		return Event{Type: CommentEvent, Data: string(t.z.Text())}, true
	}
}

func (t *Tokenizer) startTag(selfClosing bool) Event {
	name, more := t.z.TagName()
	ev := Event{Type: StartTagEvent, Name: string(name), SelfClosing: selfClosing}

	var seen map[string]int
	for more {
		var key, val []byte
		key, val, more = t.z.TagAttr()
		k := string(key)
		if i, ok := seen[k]; ok {
			ev.Attrs[i].Value = string(val)
			continue
		}
		if seen == nil {
			seen = make(map[string]int)
		}
		seen[k] = len(ev.Attrs)
		ev.Attrs = append(ev.Attrs, Attribute{Name: k, Value: string(val)})
	}
	return ev
}
