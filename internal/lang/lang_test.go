package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Language{
		"":           Unknown,
		"javascript": JavaScript,
		"PHP":        PHP,
		" python ":   Python,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("ruby")
	assert.ErrorContains(t, err, "unsupported language")
	_, err = Parse("javascript,php")
	assert.Error(t, err)
}

func TestFromExtension(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"app.js", JavaScript, true},
		{"lib/mod.MJS", JavaScript, true},
		{"view.jsx", JavaScript, true},
		{"index.php", PHP, true},
		{"tpl.phtml", PHP, true},
		{"legacy.php4", PHP, true},
		{"tool.py", Python, true},
		{"README.md", Unknown, false},
		{"Makefile", Unknown, false},
	}
	for _, tt := range tests {
		got, ok := FromExtension(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestDetectForced(t *testing.T) {
	l, ok := Detect("script.js", PHP)
	assert.True(t, ok)
	assert.Equal(t, PHP, l)

	l, ok = Detect("script.js", Unknown)
	assert.True(t, ok)
	assert.Equal(t, JavaScript, l)

	_, ok = Detect("notes.txt", PHP)
	assert.False(t, ok)
}

func TestNative(t *testing.T) {
	assert.True(t, JavaScript.Native())
	assert.True(t, PHP.Native())
	assert.False(t, Python.Native())
	assert.Equal(t, "auto", Unknown.String())
}
