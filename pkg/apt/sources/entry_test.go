package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryEqualStructural(t *testing.T) {
	a := Entry{URL: "http://foo/", Suite: "bar", Components: []string{"main", "contrib"}}
	b := Entry{URL: "http://foo/", Suite: "bar", Components: []string{"main", "contrib"}}
	assert.True(t, a.Equal(b))
}

func TestEntryEqualDiffersOnComponents(t *testing.T) {
	a := Entry{URL: "http://foo/", Suite: "bar", Components: []string{"main"}}
	b := Entry{URL: "http://foo/", Suite: "bar", Components: []string{"main", "contrib"}}
	assert.False(t, a.Equal(b))
}

func TestEntryEqualDiffersOnSrc(t *testing.T) {
	a := Entry{Src: false, URL: "http://foo/", Suite: "bar"}
	b := Entry{Src: true, URL: "http://foo/", Suite: "bar"}
	assert.False(t, a.Equal(b))
}

func TestEntryOriginalLinePreservesSourceText(t *testing.T) {
	entries, err := ParseSourcesList(strings.NewReader("deb http://foo/ bar main\n"))
	assert := assert.New(t)
	assert.NoError(err)
	if assert.Len(entries, 1) {
		assert.Equal("deb http://foo/ bar main", entries[0].OriginalLine())
	}
}
