package simulate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findablehq/findable-cli/internal/config"
	"github.com/findablehq/findable-cli/internal/index"
	"github.com/findablehq/findable-cli/internal/metrics"
	"github.com/findablehq/findable-cli/internal/model"
)

// Runner simulates answer-engine retrieval for a question bank against
// a built index, scoring each question with the active calibration
// config.
type Runner struct {
	retriever *index.Retriever
	calib     model.CalibrationConfig
	cfg       config.SimulateConfig
	topK      int
	metrics   *metrics.Metrics
}

// NewRunner wires a simulation runner. A nil metrics sink falls back
// to no-op collectors.
func NewRunner(retriever *index.Retriever, calib model.CalibrationConfig, cfg config.SimulateConfig, topK int, m *metrics.Metrics) *Runner {
	if m == nil {
		m = metrics.Nop()
	}
	if topK <= 0 {
		topK = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RelevanceFloor <= 0 {
		cfg.RelevanceFloor = 0.2
	}
	return &Runner{retriever: retriever, calib: calib, cfg: cfg, topK: topK, metrics: m}
}

// Run simulates every question with bounded fan-out. Results are
// sorted by question id before aggregation so the outcome is
// independent of scheduling.
func (r *Runner) Run(ctx context.Context, questions []model.Question) (*model.SimulationResult, error) {
	if len(questions) == 0 {
		return &model.SimulationResult{}, nil
	}

	results := make([]model.QuestionResult, len(questions))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, q := range questions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			qr, err := r.simulateOne(q)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = qr
			mu.Unlock()
			r.metrics.QuestionsSimulated.WithLabelValues(string(qr.Answerability)).Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "simulate: run")
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].QuestionID < results[j].QuestionID
	})

	out := &model.SimulationResult{QuestionResults: results}
	var combinedSum float64
	covered := 0
	for _, qr := range results {
		combinedSum += qr.Score
		switch qr.Answerability {
		case model.AnswerabilityFully:
			out.QuestionsAnswered++
		case model.AnswerabilityPartially:
			out.QuestionsPartial++
		default:
			out.QuestionsUnanswered++
		}
		if qr.Context.MaxRelevanceScore >= r.cfg.RelevanceFloor {
			covered++
		}
	}
	out.OverallScore = combinedSum / float64(len(results)) * 100
	out.CoverageScore = float64(covered) / float64(len(results)) * 100

	zap.L().Info("simulation complete",
		zap.Int("questions", len(results)),
		zap.Int("fully", out.QuestionsAnswered),
		zap.Int("partially", out.QuestionsPartial),
		zap.Int("unanswered", out.QuestionsUnanswered),
		zap.Float64("overall", out.OverallScore),
		zap.Float64("coverage", out.CoverageScore),
	)
	return out, nil
}

func (r *Runner) simulateOne(q model.Question) (model.QuestionResult, error) {
	chunks, err := r.retriever.Retrieve(q.Text, r.topK)
	if err != nil {
		return model.QuestionResult{}, eris.Wrapf(err, "simulate: question %s", q.ID)
	}

	relevance := relevanceScore(chunks)
	signals, found := signalScore(q.ExpectedSignals, chunks, r.calib.SignalMatchThreshold)
	confidence, confScore := confidenceScore(chunks)

	w := r.calib.Scoring
	combined := relevance*w.Relevance + signals*w.Signal + confScore*w.Confidence

	answerability := model.AnswerabilityNot
	switch {
	case combined >= r.calib.Thresholds.Fully:
		answerability = model.AnswerabilityFully
	case combined >= r.calib.Thresholds.Partially:
		answerability = model.AnswerabilityPartially
	}

	maxRel := 0.0
	if len(chunks) > 0 {
		maxRel = chunks[0].Score
	}

	return model.QuestionResult{
		QuestionID:     q.ID,
		Question:       q.Text,
		Category:       q.Category,
		Difficulty:     q.Difficulty,
		Answerability:  answerability,
		Score:          combined,
		Confidence:     confidence,
		SignalsFound:   found,
		SignalsTotal:   len(q.ExpectedSignals),
		RelevanceScore: relevance,
		Context: model.QuestionContext{
			TotalChunks:       len(chunks),
			MaxRelevanceScore: maxRel,
		},
	}, nil
}

// relevanceScore is the mean of the retrieved scores, capped at 1.
func relevanceScore(chunks []model.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range chunks {
		sum += c.Score
	}
	mean := sum / float64(len(chunks))
	if mean > 1 {
		mean = 1
	}
	return mean
}

// signalScore is the fraction of expected signals present in the
// concatenated retrieved content, zeroed below the match threshold.
func signalScore(signals []string, chunks []model.RetrievedChunk, threshold float64) (float64, int) {
	if len(signals) == 0 {
		return 1, 0
	}
	var corpus strings.Builder
	for _, c := range chunks {
		corpus.WriteString(strings.ToLower(c.Content))
		corpus.WriteString(" ")
		corpus.WriteString(strings.ToLower(c.HeadingContext))
		corpus.WriteString(" ")
	}
	text := corpus.String()

	found := 0
	for _, s := range signals {
		if strings.Contains(text, strings.ToLower(s)) {
			found++
		}
	}
	frac := float64(found) / float64(len(signals))
	if frac < threshold {
		return 0, found
	}
	return frac, found
}

// confidenceScore quantizes the best chunk's score and heading-context
// presence to {high, medium, low}.
func confidenceScore(chunks []model.RetrievedChunk) (model.Confidence, float64) {
	if len(chunks) == 0 {
		return model.ConfidenceLow, 0
	}
	best := chunks[0]
	switch {
	case best.Score >= 0.7 && best.HeadingContext != "":
		return model.ConfidenceHigh, 1.0
	case best.Score >= 0.5:
		return model.ConfidenceMedium, 0.6
	default:
		return model.ConfidenceLow, 0.2
	}
}
