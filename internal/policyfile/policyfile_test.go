package policyfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/htmlguard"
	"github.com/njchilds90/htmlguard/internal/policyfile"
)

const sample = `
fragments: [formatting]
elements: [a, p]
attributes:
  - names: [href]
    elements: [a]
    protocols: [https]
    relative: false
  - names: [title]
    global: true
  - names: [dir]
    elements: [p]
    values: [ltr, rtl]
  - names: [style]
    filter: style
    elements: [p]
  - names: [id]
    elements: [p]
    pattern: '^[a-z][a-z0-9-]*$'
safe_rel: true
max_depth: 8
`

func TestParse(t *testing.T) {
	p, err := policyfile.Parse([]byte(sample))
	require.NoError(t, err)

	assert.True(t, p.AllowsElement("a"))
	assert.True(t, p.AllowsElement("b"), "fragment elements are included")
	assert.True(t, p.SafeRelOnTargetLinks())
	assert.False(t, p.LinkifyEnabled())
	assert.Equal(t, 8, p.MaxNestingDepth())

	_, ok := p.AcceptAttribute("a", "href", "https://x.com")
	assert.True(t, ok)
	_, ok = p.AcceptAttribute("a", "href", "/local")
	assert.False(t, ok)
	assert.True(t, p.AllowsAttribute("b", "title"))

	got := p.Sanitize(`<p dir="rtl" id="Bad" style="color: red; position: fixed">x <b title="t">y</b></p>`)
	assert.Equal(t, `<p dir="rtl" style="color: red">x <b title="t">y</b></p>`, got)
}

func TestParse_Empty(t *testing.T) {
	p, err := policyfile.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, p.Elements())
	assert.Equal(t, "text", p.Sanitize("<b>text</b>"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown fragment", "fragments: [widgets]", policyfile.ErrUnknownFragment},
		{"unknown filter", "attributes: [{names: [x], global: true, filter: css}]", policyfile.ErrUnknownFilter},
		{"no target", "attributes: [{names: [x]}]", policyfile.ErrNoTarget},
		{"bad pattern", "attributes: [{names: [x], global: true, pattern: '('}]", htmlguard.ErrInvalidPattern},
		{"bad element", "elements: ['1x']", htmlguard.ErrInvalidElementName},
		{"negative depth", "max_depth: -1", htmlguard.ErrNegativeDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policyfile.Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := policyfile.Parse([]byte("element: [p]"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	p, err := policyfile.Load(path)
	require.NoError(t, err)
	assert.True(t, p.AllowsElement("p"))

	_, err = policyfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
