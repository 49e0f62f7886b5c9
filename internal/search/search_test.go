package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeNews, ParseType("news"))
	assert.Equal(t, TypeSearch, ParseType(""))
	assert.Equal(t, TypeSearch, ParseType("podcasts"))
}

func TestOptionsCount(t *testing.T) {
	assert.Equal(t, DefaultNumResults, Options{}.count())
	assert.Equal(t, 5, Options{NumResults: 5}.count())
	assert.Equal(t, MaxNumResults, Options{NumResults: 500}.count())
}

func TestConfigNew(t *testing.T) {
	c, err := Config{Provider: "brave", APIKey: "k"}.New()
	require.NoError(t, err)
	assert.Equal(t, "brave", c.ProviderName())

	c, err = Config{APIKey: "k"}.New()
	require.NoError(t, err)
	assert.Equal(t, "serper", c.ProviderName())

	_, err = Config{Provider: "bing"}.New()
	assert.Error(t, err)

	assert.False(t, Config{}.Enabled())
}
