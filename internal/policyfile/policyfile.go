// Package policyfile reads sanitizer policies from YAML documents.
//
// A document names the fragments to start from and adds its own rules:
//
//	fragments: [blocks, formatting]
//	elements: [a, abbr]
//	attributes:
//	  - names: [href]
//	    elements: [a]
//	    protocols: [https, mailto]
//	    relative: false
//	  - names: [title]
//	    global: true
//	  - names: [style]
//	    filter: style
//	    global: true
//	safe_rel: true
//	linkify: true
//	max_depth: 32
package policyfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/njchilds90/htmlguard"
)

var (
	// ErrUnknownFragment is returned for a fragment name that is not built in.
	ErrUnknownFragment = errors.New("policyfile: unknown fragment")
	// ErrUnknownFilter is returned for an unsupported attribute filter.
	ErrUnknownFilter = errors.New("policyfile: unknown filter")
	// ErrNoTarget is returned for an attribute rule bound to no element.
	ErrNoTarget = errors.New("policyfile: attribute rule has no elements and is not global")
)

// File is the YAML form of a policy.
type File struct {
	Fragments  []string        `yaml:"fragments"`
	Elements   []string        `yaml:"elements"`
	Attributes []AttributeRule `yaml:"attributes"`
	SafeRel    bool            `yaml:"safe_rel"`
	Linkify    bool            `yaml:"linkify"`
	MaxDepth   int             `yaml:"max_depth"`
}

// AttributeRule is the YAML form of an attribute allow rule. Protocols,
// Pattern and Values each restrict the accepted values; when several are
// given a value must satisfy all of them.
type AttributeRule struct {
	Names     []string `yaml:"names"`
	Elements  []string `yaml:"elements"`
	Global    bool     `yaml:"global"`
	Protocols []string `yaml:"protocols"`
	Relative  *bool    `yaml:"relative"`
	Pattern   string   `yaml:"pattern"`
	Values    []string `yaml:"values"`
	Filter    string   `yaml:"filter"`
}

var fragments = map[string]func() *htmlguard.Policy{
	"blocks":     htmlguard.Blocks,
	"formatting": htmlguard.Formatting,
	"links":      htmlguard.Links,
	"styles":     htmlguard.Styles,
	"images":     htmlguard.Images,
	"media":      htmlguard.Media,
	"tables":     htmlguard.Tables,
}

// Load reads and compiles the policy file at path.
func Load(path string) (*htmlguard.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Parse(data)
}

// Parse compiles a YAML policy document. Unknown keys are rejected.
func Parse(data []byte) (*htmlguard.Policy, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return f.Policy()
}

// Policy compiles f into a policy: the listed fragments extended with the
// rules declared in f.
func (f File) Policy() (*htmlguard.Policy, error) {
	b := htmlguard.NewBuilder().AllowElements(f.Elements...)
	if f.SafeRel {
		b.RequireSafeRelOnTargetLinks()
	}
	if f.Linkify {
		b.Linkify()
	}
	if f.MaxDepth != 0 {
		b.MaxDepth(f.MaxDepth)
	}

	var errs []error
	for _, name := range f.Fragments {
		fn, ok := fragments[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownFragment, name))
			continue
		}
		b.Include(fn())
	}
	for i, r := range f.Attributes {
		if err := r.apply(b); err != nil {
			errs = append(errs, fmt.Errorf("attributes[%d]: %w", i, err))
		}
	}

	p, err := b.Build()
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

func (r AttributeRule) apply(b *htmlguard.Builder) error {
	if !r.Global && len(r.Elements) == 0 {
		return ErrNoTarget
	}

	var matchers []htmlguard.ValueMatcher
	if len(r.Protocols) > 0 {
		m := htmlguard.URLProtocols(r.Protocols...)
		if r.Relative != nil && !*r.Relative {
			m = m.WithoutRelative()
		}
		matchers = append(matchers, m)
	}
	if r.Pattern != "" {
		m, err := htmlguard.Pattern(r.Pattern)
		if err != nil {
			return err
		}
		matchers = append(matchers, m)
	}
	if len(r.Values) > 0 {
		matchers = append(matchers, htmlguard.OneOf(r.Values...))
	}

	ab := b.AllowAttributes(r.Names...)
	switch strings.ToLower(r.Filter) {
	case "":
	case "style":
		ab.Normalizing(htmlguard.FilterStyle)
		matchers = append(matchers, htmlguard.NotBlank)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFilter, r.Filter)
	}

	switch len(matchers) {
	case 0:
	case 1:
		ab.Matching(matchers[0])
	default:
		ab.Matching(htmlguard.AllOf(matchers...))
	}

	if r.Global {
		ab.Globally()
	}
	if len(r.Elements) > 0 {
		ab.OnElements(r.Elements...)
	}
	return nil
}
