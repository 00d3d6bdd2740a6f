package htmlguard_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/htmlguard"
)

func TestPattern_Invalid(t *testing.T) {
	_, err := htmlguard.Pattern(`(unclosed`)
	require.Error(t, err)
	assert.ErrorIs(t, err, htmlguard.ErrInvalidPattern)

	assert.Panics(t, func() { htmlguard.MustPattern(`[`) })
}

func TestPattern_Matches(t *testing.T) {
	m := htmlguard.MustPattern(`(?i)^[a-z]+$`)
	assert.True(t, m.Matches("Hello"))
	assert.False(t, m.Matches("hello world"))

	re := regexp.MustCompile(`^\d+$`)
	assert.True(t, htmlguard.PatternOf(re).Matches("42"))
}

func TestPattern_NoCatastrophicBacktracking(t *testing.T) {
	m := htmlguard.MustPattern(`^(a+)+$`)
	assert.False(t, m.Matches(strings.Repeat("a", 100000)+"!"))
}

func TestOneOf(t *testing.T) {
	m := htmlguard.OneOf("left", "Right")
	assert.True(t, m.Matches("LEFT"))
	assert.True(t, m.Matches(" right "))
	assert.False(t, m.Matches("center"))
}

func TestURLProtocols(t *testing.T) {
	m := htmlguard.URLProtocols("http", "https", "mailto")
	tests := []struct {
		value string
		want  bool
	}{
		{"https://example.com", true},
		{"HTTP://example.com", true},
		{"mailto:user@example.com", true},
		{"/relative/path", true},
		{"//cdn.example.com/a.png", true},
		{"page.html#top", true},
		{"javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"java\tscript:alert(1)", false},
		{" \x01javascript:alert(1)", false},
		{"data:text/html,<script>", false},
		{"ftp://example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.value))
		})
	}

	strict := m.WithoutRelative()
	assert.False(t, strict.Matches("/relative/path"))
	assert.True(t, strict.Matches("https://example.com"))
	assert.True(t, m.Matches("/relative/path"), "WithoutRelative must not change the original")
}

func TestAnyOfAllOf(t *testing.T) {
	https := htmlguard.URLProtocols("https").WithoutRelative()
	short := htmlguard.MatcherFunc(func(v string) bool { return len(v) < 20 })

	either := htmlguard.AnyOf(https, short)
	assert.True(t, either.Matches("https://example.com/very/long/path"))
	assert.True(t, either.Matches("short"))
	assert.False(t, htmlguard.AnyOf().Matches("anything"))

	both := htmlguard.AllOf(https, short)
	assert.True(t, both.Matches("https://a.io"))
	assert.False(t, both.Matches("https://example.com/very/long/path"))
	assert.True(t, htmlguard.AllOf().Matches("anything"))
}

func TestNotBlank(t *testing.T) {
	assert.True(t, htmlguard.NotBlank.Matches("x"))
	assert.False(t, htmlguard.NotBlank.Matches(" \t"))
}
