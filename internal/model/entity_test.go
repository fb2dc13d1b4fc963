package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDFromName(t *testing.T) {
	a := EntityIDFromName("Steve")
	assert.Equal(t, a, EntityIDFromName("Steve"), "stable across calls")
	assert.NotEqual(t, a, EntityIDFromName("steve"), "names are case sensitive")
	assert.NotEqual(t, NoEntity, a)
}

func TestParseEntityID(t *testing.T) {
	id := EntityIDFromName("Alex")
	got, err := ParseEntityID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseEntityID("Alex")
	assert.ErrorContains(t, err, `parsing entity id "Alex"`)
}
