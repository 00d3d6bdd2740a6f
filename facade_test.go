package htmlguard_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/htmlguard"
)

var corpus = []string{
	`<p>Hello <b>world</b></p>`,
	`<script>alert(1)</script>after`,
	`<a href="javascript:alert(1)" onclick="x()">click</a>`,
	`<a href="https://x.com" target="_blank" rel="nofollow">x</a>`,
	`<img src="javascript:alert(1)"><img src="data:image/png;base64,AAAA">`,
	`<div><p>unclosed <i>italic`,
	`<b><p>x</b>y</p>`,
	`1 < 2 & 3 > 0 &amp; &lt;tag&gt;`,
	`<!-- comment --><p title='"q"'>t</p>`,
	`<style>p{color:red}</style><p style="color: red; position: fixed" class="lead">styled</p>`,
	`<table><tr><td align="center" valign="top">c</td></tr></table>`,
	`<iframe src="https://v.io/e">fallback</iframe><video controls src="javascript:x"></video>`,
	`<object data="x"><b>gone</b></object>kept`,
	`<ul><li>one<li>two</ul>`,
	`<p>ok</p><a href="x`,
	`Visit https://example.com today`,
}

func optionsFor(mask int) htmlguard.Options {
	return htmlguard.Options{
		AllowBlocks:     mask&(1<<0) != 0,
		AllowFormatting: mask&(1<<1) != 0,
		AllowLinks:      mask&(1<<2) != 0,
		AllowStyles:     mask&(1<<3) != 0,
		AllowImages:     mask&(1<<4) != 0,
		AllowMedia:      mask&(1<<5) != 0,
		AllowTables:     mask&(1<<6) != 0,
	}
}

func TestSanitizeHTML_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  htmlguard.Options
		want  string
	}{
		{"script with nothing allowed", `<script>alert(1)</script>`, htmlguard.Options{}, ``},
		{"javascript image", `<img src="javascript:alert(1)">`, htmlguard.Options{AllowImages: true}, `<img />`},
		{"onclick stripped", `<a href="https://x.com" onclick="evil()">link</a>`, htmlguard.Options{AllowLinks: true}, `<a href="https://x.com">link</a>`},
		{"formatting off", `<b>bold</b> <i>ital</i>`, htmlguard.Options{}, `bold ital`},
		{"data image kept", `<img src="data:image/png;base64,AAAA">`, htmlguard.Options{AllowImages: true}, `<img src="data:image/png;base64,AAAA" />`},
		{"data html image", `<img src="data:text/html;base64,AAAA">`, htmlguard.Options{AllowImages: true}, `<img />`},
		{"protocol relative image", `<img src="//cdn.x.com/a.png">`, htmlguard.Options{AllowImages: true}, `<img src="//cdn.x.com/a.png" />`},
		{"styles on paragraph", `<p style="color: red" class="lead">t</p>`, htmlguard.Options{AllowStyles: true}, `<p style="color: red" class="lead">t</p>`},
		{"style needs an allowed element", `<div style="color: red">t</div>`, htmlguard.Options{AllowStyles: true}, `t`},
		{"table alignment", `<caption align="top">t</caption><td align="CENTER" valign="middle" onclick="x()">c</td>`, htmlguard.Options{AllowTables: true}, `<caption align="top">t</caption><td align="CENTER" valign="middle">c</td>`},
		{"media javascript src", `<video controls src="javascript:x"></video>`, htmlguard.Options{AllowMedia: true}, `<video controls=""></video>`},
		{"everything", `<div><a href="/a" target="_top">a</a></div>`, htmlguard.AllOptions, `<div><a href="/a" target="_top" rel="noopener noreferrer">a</a></div>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, htmlguard.SanitizeHTML(tt.input, tt.opts))
		})
	}
}

func TestSanitizeHTML_BlankUnchanged(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		assert.Equal(t, in, htmlguard.SanitizeHTML(in, htmlguard.AllOptions))
	}
}

func TestSanitizeNullable(t *testing.T) {
	assert.Nil(t, htmlguard.SanitizeNullable(nil, htmlguard.AllOptions))

	blank := "  "
	assert.Same(t, &blank, htmlguard.SanitizeNullable(&blank, htmlguard.AllOptions))

	in := `<b>x</b><script>y</script>`
	got := htmlguard.SanitizeNullable(&in, htmlguard.Options{AllowFormatting: true})
	require.NotNil(t, got)
	assert.Equal(t, `<b>x</b>`, *got)
}

func TestEffectivePolicy_Memoized(t *testing.T) {
	opts := htmlguard.Options{AllowLinks: true, AllowTables: true}
	assert.Same(t, htmlguard.EffectivePolicy(opts), htmlguard.EffectivePolicy(opts))
	assert.Empty(t, htmlguard.EffectivePolicy(htmlguard.Options{}).Elements())
}

func TestEffectivePolicy_OrderIndependent(t *testing.T) {
	reversed := htmlguard.ComposeAll(
		htmlguard.Tables(), htmlguard.Media(), htmlguard.Images(), htmlguard.Styles(),
		htmlguard.Links(), htmlguard.Formatting(), htmlguard.Blocks(),
	)
	forward := htmlguard.EffectivePolicy(htmlguard.AllOptions)

	assert.Equal(t, forward.Elements(), reversed.Elements())
	for _, in := range corpus {
		want, err := htmlguard.Sanitize(in, reversed)
		require.NoError(t, err)
		assert.Equal(t, want, forward.Sanitize(in), in)
	}
}

func TestSanitizeHTML_Idempotent(t *testing.T) {
	for mask := 0; mask < 1<<7; mask++ {
		opts := optionsFor(mask)
		for _, in := range corpus {
			once := htmlguard.SanitizeHTML(in, opts)
			assert.Equal(t, once, htmlguard.SanitizeHTML(once, opts), "mask %07b input %q", mask, in)
		}
	}
}

// survivors lists every element and attribute value present in markup.
func survivors(markup string) map[string]bool {
	out := make(map[string]bool)
	for ev := range htmlguard.Tokenize(markup) {
		if ev.Type != htmlguard.StartTagEvent {
			continue
		}
		out[ev.Name] = true
		for _, a := range ev.Attrs {
			out[fmt.Sprintf("%s@%s=%s", ev.Name, a.Name, a.Value)] = true
		}
	}
	return out
}

func TestSanitizeHTML_MonotonicInOptions(t *testing.T) {
	for mask := 0; mask < 1<<7; mask++ {
		for bit := 0; bit < 7; bit++ {
			if mask&(1<<bit) != 0 {
				continue
			}
			narrow, wide := optionsFor(mask), optionsFor(mask|1<<bit)
			for _, in := range corpus {
				got := survivors(htmlguard.SanitizeHTML(in, wide))
				for key := range survivors(htmlguard.SanitizeHTML(in, narrow)) {
					assert.True(t, got[key], "mask %07b + bit %d lost %s for %q", mask, bit, key, in)
				}
			}
		}
	}
}

func TestSanitizeHTML_OutputOnlyHoldsAllowedMarkup(t *testing.T) {
	for mask := 0; mask < 1<<7; mask++ {
		opts := optionsFor(mask)
		p := htmlguard.EffectivePolicy(opts)
		for _, in := range corpus {
			out := htmlguard.SanitizeHTML(in, opts)
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
			require.NoError(t, err)
			doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
				name := goquery.NodeName(s)
				assert.True(t, p.AllowsElement(name), "mask %07b emitted %s in %q", mask, name, out)
				for _, a := range s.Nodes[0].Attr {
					assert.True(t, a.Key == "rel" || p.AllowsAttribute(name, a.Key),
						"mask %07b emitted %s@%s in %q", mask, name, a.Key, out)
				}
			})
		}
	}
}

func TestSanitizeHTML_MatchesStrictPolicyWhenNothingAllowed(t *testing.T) {
	strict := bluemonday.StrictPolicy()
	for _, in := range corpus {
		assert.Equal(t, strict.Sanitize(in), htmlguard.SanitizeHTML(in, htmlguard.Options{}), in)
	}
}

func BenchmarkSanitizeHTML(b *testing.B) {
	input := strings.Join(corpus, "\n")
	for i := 0; i < b.N; i++ {
		htmlguard.SanitizeHTML(input, htmlguard.AllOptions)
	}
}
