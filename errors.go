package htmlguard

import "errors"

// Construction errors. These indicate a programming or configuration bug and
// are reported by Builder.Build, never by sanitization.
var (
	ErrInvalidElementName   = errors.New("htmlguard: invalid element name")
	ErrInvalidAttributeName = errors.New("htmlguard: invalid attribute name")
	ErrInvalidPattern       = errors.New("htmlguard: invalid value pattern")
	ErrNilMatcher           = errors.New("htmlguard: nil value matcher")
	ErrNegativeDepth        = errors.New("htmlguard: negative max depth")
)

// ErrNilPolicy is returned when a nil policy reaches the rewriter.
var ErrNilPolicy = errors.New("htmlguard: nil policy")
