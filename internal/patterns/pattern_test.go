package patterns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		match   []string
		noMatch []string
	}{
		{
			name:    "slash delimited",
			raw:     `/rapidgator\.net\/file\/.+/`,
			match:   []string{"https://rapidgator.net/file/abc"},
			noMatch: []string{"https://example.com/file/abc"},
		},
		{
			name:  "trailing js flags",
			raw:   `/(www\.)?1fichier\.com\/\?.+/gi`,
			match: []string{"https://www.1fichier.com/?xyz", "https://1FICHIER.com/?q"},
		},
		{
			name:  "case insensitive without flags",
			raw:   `/uptobox\.com/`,
			match: []string{"HTTPS://UPTOBOX.COM/abc"},
		},
		{
			name:  "undelimited source",
			raw:   `mega\.nz/file/`,
			match: []string{"https://mega.nz/file/abc"},
		},
		{
			name:    "slash without flags is kept literal",
			raw:     `/files/abc`,
			match:   []string{"https://h.example/files/abc"},
			noMatch: []string{"https://h.example/files/xyz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, p.Source())
			for _, m := range tt.match {
				assert.True(t, p.MatchString(m), m)
			}
			for _, m := range tt.noMatch {
				assert.False(t, p.MatchString(m), m)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, raw := range []string{"", "  ", "//", "/(unclosed/", "/a(?=b)/"} {
		_, err := Parse(raw)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), "expected ParseError for %q", raw)
		assert.Equal(t, raw, perr.Source)
	}
}

func TestSet_Match(t *testing.T) {
	set, errs := ParseAll([]string{`/a\.com/`, `/(bad/`, `/b\.com/`})
	require.Len(t, errs, 1)
	require.Len(t, set, 2)

	assert.True(t, set.Match("https://a.com/x"))
	assert.True(t, set.Match("https://B.com/x"))
	assert.False(t, set.Match("https://c.com/x"))
	assert.False(t, Set{}.Match("https://a.com/x"))
	assert.Equal(t, []string{`/a\.com/`, `/b\.com/`}, set.Sources())
}
