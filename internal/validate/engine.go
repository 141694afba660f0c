// Package validate collects ground truth for calibration: it replays
// simulated questions against a real answer engine and records whether
// the site was actually mentioned or cited.
package validate

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/findablehq/findable-cli/internal/replay"
)

// AnswerEngine answers a question the way an AI answer surface would.
// Live provider adapters live outside the core; the core ships the
// cassette-backed engine below for recorded sessions.
type AnswerEngine interface {
	// Name identifies the engine in samples and logs.
	Name() string
	// Answer returns the engine's answer text for the question.
	Answer(ctx context.Context, question string) (string, error)
}

// CassetteEngine replays answers from a recorded LLM cassette. A miss
// is an error: recorded sessions are the only source this engine has.
type CassetteEngine struct {
	cassette *replay.LLMCassette
	model    string
}

// NewCassetteEngine wraps cassette for the given model name.
func NewCassetteEngine(cassette *replay.LLMCassette, modelName string) *CassetteEngine {
	return &CassetteEngine{cassette: cassette, model: modelName}
}

func (e *CassetteEngine) Name() string { return fmt.Sprintf("cassette/%s", e.model) }

func (e *CassetteEngine) Answer(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, err := e.cassette.MustLookup(question, e.model)
	if err != nil {
		return "", eris.Wrap(err, "validate: cassette answer")
	}
	return answer, nil
}

// StaticEngine answers every question with a fixed response. Used in
// tests and dry runs.
type StaticEngine struct {
	Response string
}

func (e StaticEngine) Name() string { return "static" }

func (e StaticEngine) Answer(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.Response, nil
}
