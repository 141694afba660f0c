package validate

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/findablehq/findable-cli/internal/calibrate"
	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/resilience"
)

var urlPattern = regexp.MustCompile(`https?://[^\s)<>"']+`)

// Observe inspects an answer for evidence of the site: mentioned when
// the domain or company name appears in the text, cited when a URL on
// the domain appears.
func Observe(answer, domain, companyName string) calibrate.Observation {
	obs := calibrate.Observation{Known: true}
	lower := strings.ToLower(answer)
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))

	if domain != "" && strings.Contains(lower, domain) {
		obs.Mentioned = true
	}
	if companyName != "" && strings.Contains(lower, strings.ToLower(companyName)) {
		obs.Mentioned = true
	}
	for _, raw := range urlPattern.FindAllString(answer, -1) {
		if hostMatches(raw, domain) {
			obs.Cited = true
			obs.Mentioned = true
			break
		}
	}
	return obs
}

func hostMatches(rawURL, domain string) bool {
	if domain == "" {
		return false
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(rawURL), "https://"), "http://")
	trimmed = strings.TrimPrefix(trimmed, "www.")
	host := trimmed
	if i := strings.IndexAny(trimmed, "/?#"); i >= 0 {
		host = trimmed[:i]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Collector runs simulated questions through an answer engine and
// pairs each with the observed outcome. The engine sits behind a
// circuit breaker so a failing provider stops the batch early instead
// of burning the whole question list.
type Collector struct {
	engine      AnswerEngine
	breaker     *resilience.Breaker
	retry       resilience.RetryConfig
	concurrency int
	now         func() time.Time
}

// CollectorOption mutates a Collector during construction.
type CollectorOption func(*Collector)

// WithConcurrency sets the number of concurrent engine queries.
func WithConcurrency(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithClock overrides the sample timestamp source.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// NewCollector builds a collector around engine. Default concurrency
// is 2 queries.
func NewCollector(engine AnswerEngine, opts ...CollectorOption) *Collector {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger(engine.Name(), "answer")
	c := &Collector{
		engine:      engine,
		breaker:     resilience.NewBreaker(resilience.DefaultBreakerConfig()),
		retry:       retry,
		concurrency: 2,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GroundTruthRequest identifies the site and run whose simulation
// results are being validated.
type GroundTruthRequest struct {
	SiteID       string
	RunID        string
	Domain       string
	CompanyName  string
	ExperimentID string
	Arm          model.Arm
	Results      []model.QuestionResult
}

// CollectGroundTruth asks the engine every simulated question and
// returns one calibration sample per question. Engine failures after
// retries produce a sample with an unknown outcome rather than
// dropping the question.
func (c *Collector) CollectGroundTruth(ctx context.Context, req GroundTruthRequest) ([]model.CalibrationSample, error) {
	if len(req.Results) == 0 {
		return nil, nil
	}
	if req.Domain == "" {
		return nil, eris.New("validate: domain is required")
	}

	samples := make([]model.CalibrationSample, len(req.Results))
	var mu sync.Mutex
	unknown := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, qr := range req.Results {
		g.Go(func() error {
			obs, err := c.observeOne(gctx, qr.Question, req.Domain, req.CompanyName)
			if err != nil {
				if eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded) {
					return err
				}
				zap.L().Warn("ground truth query failed",
					zap.String("question_id", qr.QuestionID),
					zap.String("engine", c.engine.Name()),
					zap.Error(err))
				obs = calibrate.Observation{}
			}
			sample := calibrate.BuildSample(req.SiteID, req.RunID, qr, obs, req.ExperimentID, req.Arm, c.now().UTC())
			mu.Lock()
			samples[i] = sample
			if !obs.Known {
				unknown++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "validate: collect ground truth")
	}

	zap.L().Info("ground truth collected",
		zap.String("site_id", req.SiteID),
		zap.String("engine", c.engine.Name()),
		zap.Int("samples", len(samples)),
		zap.Int("unknown", unknown))
	return samples, nil
}

func (c *Collector) observeOne(ctx context.Context, question, domain, companyName string) (calibrate.Observation, error) {
	answer, err := resilience.Protect(ctx, c.breaker, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
			return c.engine.Answer(ctx, question)
		})
	})
	if err != nil {
		return calibrate.Observation{}, err
	}
	return Observe(answer, domain, companyName), nil
}
