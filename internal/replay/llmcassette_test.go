package replay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMCassette_RecordAndExactLookup(t *testing.T) {
	c, err := OpenLLMCassette(filepath.Join(t.TempDir(), "llm.yaml"), 0)
	require.NoError(t, err)

	c.Record("What is Acme?", "model-a", "Acme is a platform.")

	resp, ok := c.Lookup("What is Acme?", "model-a")
	require.True(t, ok)
	assert.Equal(t, "Acme is a platform.", resp)

	// Different model misses even with an identical prompt.
	_, ok = c.Lookup("What is Acme?", "model-b")
	assert.False(t, ok)
}

func TestLLMCassette_FuzzyFallback(t *testing.T) {
	c, err := OpenLLMCassette(filepath.Join(t.TempDir(), "llm.yaml"), 0.5)
	require.NoError(t, err)

	c.Record("how much does acme cost per month", "model-a", "29 dollars")
	c.Record("the weather in paris today", "model-a", "sunny")

	// Near-identical token set matches the pricing episode.
	resp, ok := c.Lookup("how much does acme cost per year", "model-a")
	require.True(t, ok)
	assert.Equal(t, "29 dollars", resp)

	// Nothing shares enough tokens with this prompt.
	_, ok = c.Lookup("completely unrelated question about databases", "model-a")
	assert.False(t, ok)
}

func TestLLMCassette_FuzzyDisabled(t *testing.T) {
	c, err := OpenLLMCassette(filepath.Join(t.TempDir(), "llm.yaml"), 0)
	require.NoError(t, err)

	c.Record("how much does acme cost per month", "model-a", "29 dollars")

	_, ok := c.Lookup("how much does acme cost per year", "model-a")
	assert.False(t, ok)
}

func TestLLMCassette_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.yaml")

	c, err := OpenLLMCassette(path, 0)
	require.NoError(t, err)
	c.Record("prompt one", "model-a", "response one")
	c.Record("prompt two", "model-a", "response two")
	require.NoError(t, c.Save())

	reloaded, err := OpenLLMCassette(path, 0)
	require.NoError(t, err)
	resp, ok := reloaded.Lookup("prompt two", "model-a")
	require.True(t, ok)
	assert.Equal(t, "response two", resp)
}

func TestLLMCassette_SaveSkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.yaml")
	c, err := OpenLLMCassette(path, 0)
	require.NoError(t, err)

	require.NoError(t, c.Save())
	assert.NoFileExists(t, path)
}

func TestMustLookup_MissErrors(t *testing.T) {
	c, err := OpenLLMCassette(filepath.Join(t.TempDir(), "llm.yaml"), 0)
	require.NoError(t, err)

	_, err = c.MustLookup("unrecorded", "model-a")
	assert.Error(t, err)
}

func TestLLMKey_SeparatesPromptAndModel(t *testing.T) {
	assert.NotEqual(t, LLMKey("ab", "c"), LLMKey("a", "bc"))
	assert.Equal(t, LLMKey("p", "m"), LLMKey("p", "m"))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard(tokenSet("a b c"), tokenSet("c b a")), 1e-9)
	assert.InDelta(t, 0.0, jaccard(tokenSet("a b"), tokenSet("c d")), 1e-9)
	assert.InDelta(t, 1.0, jaccard(tokenSet(""), tokenSet("")), 1e-9)
	// Two shared tokens out of four total.
	assert.InDelta(t, 0.5, jaccard(tokenSet("a b c"), tokenSet("b c d")), 1e-9)
}
