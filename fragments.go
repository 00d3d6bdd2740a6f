package htmlguard

import "sync"

// Named policy fragments. Each is built once on first use and never
// modified afterwards.
var (
	denyAllPolicy = sync.OnceValue(func() *Policy {
		return NewBuilder().MustBuild()
	})

	blocksPolicy = sync.OnceValue(func() *Policy {
		return NewBuilder().
			AllowElements("p", "div", "h1", "h2", "h3", "h4", "h5", "h6",
				"ul", "ol", "li", "blockquote").
			MustBuild()
	})

	formattingPolicy = sync.OnceValue(func() *Policy {
		return NewBuilder().
			AllowElements("b", "i", "font", "s", "u", "o", "sup", "sub",
				"ins", "del", "strong", "strike", "tt", "code", "big",
				"small", "br", "span", "em").
			MustBuild()
	})

	linksPolicy = sync.OnceValue(func() *Policy {
		return NewBuilder().
			AllowElements("a").
			AllowAttributes("href").Matching(URLProtocols("http", "https", "mailto")).OnElements("a").
			AllowAttributes("target").OnElements("a").
			RequireSafeRelOnTargetLinks().
			MustBuild()
	})

	stylesPolicy = sync.OnceValue(func() *Policy {
		return NewBuilder().
			AllowAttributes("style").Normalizing(FilterStyle).Matching(NotBlank).Globally().
			AllowElements("span", "li", "p", "pre").
			AllowAttributes("class").OnElements("span", "li", "p", "pre").
			MustBuild()
	})

	imagesPolicy = sync.OnceValue(func() *Policy {
		src := AllOf(
			URLProtocols("data", "http", "https", "mailto"),
			MustPattern(`(?i)^(data:image/(gif|png|jpeg|webp)[,;]|http|https|mailto|//).+`),
		)
		return NewBuilder().
			AllowElements("img").
			AllowAttributes("src").Matching(src).OnElements("img").
			MustBuild()
	})

	mediaPolicy = sync.OnceValue(func() *Policy {
		media := []string{"video", "audio", "source", "iframe"}
		return NewBuilder().
			AllowElements(media...).
			AllowAttributes("controls", "width", "height", "origin-size", "allowfullscreen").OnElements(media...).
			AllowAttributes("src").Matching(URLProtocols("data", "http", "https")).OnElements(media...).
			MustBuild()
	})

	tablesPolicy = sync.OnceValue(func() *Policy {
		parts := []string{"table", "tr", "td", "th", "colgroup", "caption",
			"col", "thead", "tbody", "tfoot"}
		return NewBuilder().
			AllowElements(parts...).
			AllowAttributes("summary").OnElements("table").
			AllowAttributes("align", "valign").OnElements(parts...).
			MustBuild()
	})
)

// DenyAll returns the policy that allows no elements at all. It is the
// identity of Compose.
func DenyAll() *Policy { return denyAllPolicy() }

// Blocks allows structural block elements: paragraphs, divisions, headings,
// lists and block quotes.
func Blocks() *Policy { return blocksPolicy() }

// Formatting allows inline text formatting elements.
func Formatting() *Policy { return formattingPolicy() }

// Links allows a elements with http, https, mailto or relative hrefs and a
// target attribute. Targeted links are given rel="noopener noreferrer".
func Links() *Policy { return linksPolicy() }

// Styles allows a filtered style attribute on every allowed element and a
// class attribute on span, li, p and pre.
func Styles() *Policy { return stylesPolicy() }

// Images allows img with a src that is an http, https, mailto or
// protocol-relative URL, or a gif, png, jpeg or webp data URL.
func Images() *Policy { return imagesPolicy() }

// Media allows video, audio, source and iframe with playback attributes and
// a src restricted to data, http, https and relative URLs.
func Media() *Policy { return mediaPolicy() }

// Tables allows table structure with alignment attributes.
func Tables() *Policy { return tablesPolicy() }
