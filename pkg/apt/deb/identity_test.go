package deb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityWithEmail(t *testing.T) {
	id, err := ParseIdentity("Jane Doe <jane@example.com>")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", id.Name)
	assert.Equal(t, "jane@example.com", id.Email)
}

func TestParseIdentityNameOnlyFails(t *testing.T) {
	_, err := ParseIdentity("Jane Doe")
	assert.Error(t, err)
}

func TestParseIdentityBareEmailFails(t *testing.T) {
	_, err := ParseIdentity("just@email.com")
	assert.Error(t, err)
}

func TestParseIdentityTrailingCommaTolerated(t *testing.T) {
	ids, err := ParseIdentityList("Jane Doe <jane@example.com>,")
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

func TestParseIdentityNameEscapes(t *testing.T) {
	id, err := ParseIdentity(`fo\'o <bar@example.com>`)
	require.NoError(t, err)
	assert.Equal(t, "fo'o", id.Name)

	id, err = ParseIdentity(`\x61 <bar@example.com>`)
	require.NoError(t, err)
	assert.Equal(t, "a", id.Name)

	_, err = ParseIdentity(`fo\a <bar@example.com>`)
	assert.Error(t, err)
}

func TestParseIdentityUnterminatedEmail(t *testing.T) {
	_, err := ParseIdentity("Jane Doe <jane@example.com")
	assert.Error(t, err)
}

func TestParseIdentityEmpty(t *testing.T) {
	_, err := ParseIdentity("   ")
	assert.Error(t, err)
}

func TestParseIdentityListSplitsOnComma(t *testing.T) {
	ids, err := ParseIdentityList("Jane Doe <jane@example.com>, John Smith <john@example.com>")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "Jane Doe", ids[0].Name)
	assert.Equal(t, "John Smith", ids[1].Name)
}

func TestIdentityStringOmitsEmptyEmail(t *testing.T) {
	id := Identity{Name: "Jane Doe"}
	assert.Equal(t, "Jane Doe", id.String())
}

func TestIdentityStringIncludesEmail(t *testing.T) {
	id := Identity{Name: "Jane Doe", Email: "jane@example.com"}
	assert.Equal(t, "Jane Doe <jane@example.com>", id.String())
}
