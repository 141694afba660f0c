package validate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findablehq/findable-cli/internal/replay"
)

func TestCassetteEngine_ReplaysRecordedAnswer(t *testing.T) {
	cassette, err := replay.OpenLLMCassette(filepath.Join(t.TempDir(), "answers.yaml"), 0)
	require.NoError(t, err)
	cassette.Record("What is Acme?", "gpt-test", "Acme is a project tracker at acme.com.")

	engine := NewCassetteEngine(cassette, "gpt-test")
	assert.Equal(t, "cassette/gpt-test", engine.Name())

	answer, err := engine.Answer(context.Background(), "What is Acme?")
	require.NoError(t, err)
	assert.Contains(t, answer, "acme.com")
}

func TestCassetteEngine_MissIsError(t *testing.T) {
	cassette, err := replay.OpenLLMCassette(filepath.Join(t.TempDir(), "answers.yaml"), 0)
	require.NoError(t, err)

	engine := NewCassetteEngine(cassette, "gpt-test")
	_, err = engine.Answer(context.Background(), "Never recorded question?")
	require.Error(t, err)
}
