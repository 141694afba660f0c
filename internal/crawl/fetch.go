package crawl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/findablehq/findable-cli/internal/model"
	"github.com/findablehq/findable-cli/internal/resilience"
)

// maxBodyBytes caps how much of a response body the fetcher reads.
const maxBodyBytes = 2 * 1024 * 1024

// FetcherOptions configures the polite fetcher.
type FetcherOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MinDelay     time.Duration
	MaxRedirects int
	// Transport overrides the HTTP transport; used by the record/replay
	// harness to splice in a cassette.
	Transport http.RoundTripper
}

// FetchResult is the raw outcome of one HTTP GET.
type FetchResult struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	FetchTime   time.Duration
	Failure     model.FetchFailure
	Blocked     bool
	BlockType   BlockType
}

// Success reports whether the fetch produced crawlable HTML: status in
// [200,399) and a text/html content type.
func (r *FetchResult) Success() bool {
	return r.Failure == model.FetchFailureNone &&
		r.StatusCode >= 200 && r.StatusCode < 399 &&
		strings.HasPrefix(r.ContentType, "text/html")
}

// Fetcher performs HTTP GETs with a per-host minimum inter-request
// delay. It is parallel across hosts but serialized per host behind the
// delay gate; hosts that keep failing trip a circuit breaker.
type Fetcher struct {
	client   *http.Client
	opts     FetcherOptions
	breakers *resilience.HostBreakers

	mu     sync.Mutex
	gates  map[string]*rate.Limiter
	delays map[string]time.Duration
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = 500 * time.Millisecond
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "FindableBot/1.0 (+https://findable.ai/bot)"
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	maxRedirects := opts.MaxRedirects
	return &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return eris.Errorf("fetch: stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		opts:     opts,
		breakers: resilience.NewHostBreakers(resilience.DefaultBreakerConfig()),
		gates:    make(map[string]*rate.Limiter),
		delays:   make(map[string]time.Duration),
	}
}

// SetHostDelay overrides the minimum inter-request delay for one host,
// used to honor a robots.txt Crawl-delay. The effective delay is the
// max of the configured minimum and the robots value.
func (f *Fetcher) SetHostDelay(host string, delay time.Duration) {
	if delay < f.opts.MinDelay {
		delay = f.opts.MinDelay
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[host] = delay
	f.gates[host] = rate.NewLimiter(rate.Every(delay), 1)
}

// gateFor returns the delay gate for a host, creating one at the
// configured minimum delay on first use.
func (f *Fetcher) gateFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gate, ok := f.gates[host]; ok {
		return gate
	}
	gate := rate.NewLimiter(rate.Every(f.opts.MinDelay), 1)
	f.gates[host] = gate
	return gate
}

// Fetch GETs the URL behind the per-host delay gate and classifies the
// outcome. Network failures are reported in the result, not as errors;
// the only error returns are an unparseable URL, cancellation, and an
// open circuit for the host.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, resilience.Classify(resilience.KindInput, eris.Wrap(err, "fetch: parse url"))
	}

	breaker := f.breakers.Get(u.Host)
	result, err := resilience.Protect(ctx, breaker, func(ctx context.Context) (*FetchResult, error) {
		return f.fetchOnce(ctx, rawURL, u.Host)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, resilience.Classify(resilience.KindNetwork,
				eris.Wrapf(err, "fetch: host %s circuit open", u.Host))
		}
		if resilience.KindOf(err) == resilience.KindCancelled {
			return nil, err
		}
		// Transport failure: the breaker has counted it; the caller
		// reads the classification off the result.
		if result != nil {
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL, host string) (*FetchResult, error) {
	if err := f.gateFor(host).Wait(ctx); err != nil {
		return nil, resilience.Classify(resilience.KindCancelled, eris.Wrap(err, "fetch: delay gate"))
	}

	result := &FetchResult{URL: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Failure = model.FetchFailureParse
		return result, nil
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	result.FetchTime = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, resilience.Classify(resilience.KindCancelled, err)
		}
		result.Failure = classifyFetchError(err)
		zap.L().Debug("fetch failed",
			zap.String("url", rawURL),
			zap.String("failure", string(result.Failure)),
			zap.Error(err),
		)
		// Report the failure to the breaker but not to the caller; the
		// crawler records it as a skipped URL.
		return result, resilience.Classify(resilience.KindNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.ContentType = strings.ToLower(strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))

	body, readErr := readBody(resp, maxBodyBytes)
	if readErr != nil {
		result.Failure = model.FetchFailureParse
		return result, nil
	}
	result.Body = body

	if blocked, blockType := DetectBlock(resp, body); blocked {
		result.Blocked = true
		result.BlockType = blockType
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 399 {
		result.Failure = model.FetchFailureStatus
		// Throttle and overload statuses feed the breaker; a 429 opens
		// it immediately. Other bad statuses (404, 410) say nothing
		// about the host's health and stay invisible to it.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			return result, resilience.NewTransientError(
				eris.Errorf("fetch: host %s returned %d", host, resp.StatusCode),
				resp.StatusCode)
		}
	}

	return result, nil
}

// readBody reads up to limit bytes, converting legacy charsets to
// UTF-8 when the content type declares one.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	var reader io.Reader = io.LimitReader(resp.Body, limit)

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(contentType), "text/") {
		converted, err := charset.NewReader(reader, contentType)
		if err == nil {
			reader = converted
		}
	}

	return io.ReadAll(reader)
}

// classifyFetchError maps a transport error to the fetch failure
// taxonomy.
func classifyFetchError(err error) model.FetchFailure {
	switch resilience.KindOf(err) {
	case resilience.KindCancelled:
		return model.FetchFailureTimeout
	case resilience.KindNetwork:
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
			return model.FetchFailureTimeout
		}
		return model.FetchFailureConnect
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return model.FetchFailureTimeout
	case strings.Contains(msg, "redirect"):
		return model.FetchFailureStatus
	default:
		return model.FetchFailureConnect
	}
}

// FetchText GETs a small text resource (robots.txt, llms.txt). Returns
// the body and status code; a non-2xx status is not an error.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, resilience.Classify(resilience.KindInput, eris.Wrap(err, "fetch: parse url"))
	}

	if err := f.gateFor(u.Host).Wait(ctx); err != nil {
		return "", 0, resilience.Classify(resilience.KindCancelled, eris.Wrap(err, "fetch: delay gate"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, resilience.Classify(resilience.KindNetwork, eris.Wrap(err, "fetch: get text"))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, resilience.Classify(resilience.KindNetwork, eris.Wrap(err, "fetch: read text"))
	}

	return string(body), resp.StatusCode, nil
}

// FetchRobots retrieves and wraps /robots.txt for the URL's host. Fetch
// failures yield a permissive RobotsFile with FetchFailed set; callers
// decide whether to trust it.
func (f *Fetcher) FetchRobots(ctx context.Context, siteURL string) *RobotsFile {
	u, err := url.Parse(siteURL)
	if err != nil {
		return &RobotsFile{FetchFailed: true}
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	body, status, err := f.FetchText(ctx, robotsURL)
	if err != nil {
		zap.L().Debug("robots.txt fetch failed, using permissive policy",
			zap.String("url", robotsURL),
			zap.Error(err),
		)
		return &RobotsFile{FetchFailed: true}
	}
	if status != http.StatusOK {
		// Missing robots.txt is an ordinary empty policy, not a failure.
		return &RobotsFile{StatusCode: status}
	}

	return &RobotsFile{Raw: body, StatusCode: status}
}

// ProbeTTFB issues a GET and measures time to first response byte.
func (f *Fetcher) ProbeTTFB(ctx context.Context, rawURL string) (time.Duration, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, resilience.Classify(resilience.KindInput, eris.Wrap(err, "fetch: parse url"))
	}

	if err := f.gateFor(u.Host).Wait(ctx); err != nil {
		return 0, resilience.Classify(resilience.KindCancelled, eris.Wrap(err, "fetch: delay gate"))
	}

	var ttfb time.Duration
	var start time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			ttfb = time.Since(start)
		},
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "fetch: create ttfb request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	start = time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, resilience.Classify(resilience.KindNetwork, eris.Wrap(err, "fetch: ttfb probe"))
	}
	defer resp.Body.Close() //nolint:errcheck

	// Drain a byte in case the trace callback did not fire (cached
	// transports may deliver headers and body together).
	if ttfb == 0 {
		buf := make([]byte, 1)
		_, _ = resp.Body.Read(buf)
		ttfb = time.Since(start)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return ttfb, nil
}
