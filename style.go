package htmlguard

import (
	"strings"

	"github.com/aymerick/douceur/parser"
	"github.com/gorilla/css/scanner"
)

// styleProperties is the deny-by-default allow-list of CSS properties that
// may survive in a style attribute.
var styleProperties = map[string]struct{}{
	"background-color":    {},
	"border":              {},
	"border-bottom":       {},
	"border-collapse":     {},
	"border-color":        {},
	"border-left":         {},
	"border-radius":       {},
	"border-right":        {},
	"border-spacing":      {},
	"border-style":        {},
	"border-top":          {},
	"border-width":        {},
	"caption-side":        {},
	"clear":               {},
	"color":               {},
	"float":               {},
	"font":                {},
	"font-family":         {},
	"font-size":           {},
	"font-stretch":        {},
	"font-style":          {},
	"font-variant":        {},
	"font-weight":         {},
	"height":              {},
	"letter-spacing":      {},
	"line-height":         {},
	"list-style-position": {},
	"list-style-type":     {},
	"margin":              {},
	"margin-bottom":       {},
	"margin-left":         {},
	"margin-right":        {},
	"margin-top":          {},
	"max-height":          {},
	"max-width":           {},
	"min-height":          {},
	"min-width":           {},
	"padding":             {},
	"padding-bottom":      {},
	"padding-left":        {},
	"padding-right":       {},
	"padding-top":         {},
	"table-layout":        {},
	"text-align":          {},
	"text-decoration":     {},
	"text-indent":         {},
	"text-transform":      {},
	"vertical-align":      {},
	"white-space":         {},
	"width":               {},
	"word-spacing":        {},
	"word-wrap":           {},
}

var styleFunctions = map[string]struct{}{
	"rgb(":  {},
	"rgba(": {},
	"hsl(":  {},
	"hsla(": {},
}

// FilterStyle keeps the declarations of an inline style whose property is
// allow-listed and whose value passes a token screen, and returns them as
// "prop: value" pairs joined by "; ". It returns "" when nothing survives.
// Applying FilterStyle to its own output returns the output unchanged.
func FilterStyle(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !strings.HasSuffix(v, ";") {
		v += ";"
	}
	decls, err := parser.ParseDeclarations(v)
	if err != nil {
		return ""
	}

	kept := make([]string, 0, len(decls))
	for _, d := range decls {
		prop := strings.ToLower(strings.TrimSpace(d.Property))
		if _, ok := styleProperties[prop]; !ok {
			continue
		}
		val := strings.TrimSpace(d.Value)
		if !safeStyleValue(val) {
			continue
		}
		decl := prop + ": " + val
		if d.Important {
			decl += " !important"
		}
		kept = append(kept, decl)
	}
	return strings.Join(kept, "; ")
}

// safeStyleValue rejects anything that can load a resource or execute code:
// url(), arbitrary functions, escapes, comments and structural characters.
func safeStyleValue(v string) bool {
	if v == "" || strings.ContainsRune(v, '\\') {
		return false
	}
	s := scanner.New(v)
	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			return true
		case scanner.TokenIdent, scanner.TokenString, scanner.TokenHash,
			scanner.TokenNumber, scanner.TokenPercentage, scanner.TokenDimension,
			scanner.TokenS:
		case scanner.TokenFunction:
			if _, ok := styleFunctions[strings.ToLower(tok.Value)]; !ok {
				return false
			}
		case scanner.TokenChar:
			switch tok.Value {
			case ",", "/", ")", "-", "+", ".", "%":
			default:
				return false
			}
		default:
			return false
		}
	}
}
