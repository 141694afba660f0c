package replay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CassetteMode controls how a cassette answers requests.
//
//	none         every request must hit an existing episode
//	new_episodes replay known episodes, record unknown ones
//	all          always hit the network and re-record
//	optional     replay when present, pass through silently otherwise
type CassetteMode string

const (
	ModeNone        CassetteMode = "none"
	ModeNewEpisodes CassetteMode = "new_episodes"
	ModeAll         CassetteMode = "all"
	ModeOptional    CassetteMode = "optional"
)

// Episode is one recorded request/response pair.
type Episode struct {
	Key        string            `yaml:"key"`
	Method     string            `yaml:"method"`
	URL        string            `yaml:"url"`
	StatusCode int               `yaml:"status_code"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Body       string            `yaml:"body"`
}

// HTTPCassette is an http.RoundTripper that records and replays
// request/response tuples keyed by hash(method, url, body).
type HTTPCassette struct {
	path string
	mode CassetteMode
	next http.RoundTripper

	mu       sync.Mutex
	episodes map[string]*Episode
	dirty    bool
}

// OpenHTTPCassette loads the cassette at path, creating an empty one
// when the file does not exist. next handles real network calls; nil
// falls back to http.DefaultTransport.
func OpenHTTPCassette(path string, mode CassetteMode, next http.RoundTripper) (*HTTPCassette, error) {
	if next == nil {
		next = http.DefaultTransport
	}
	c := &HTTPCassette{
		path:     path,
		mode:     mode,
		next:     next,
		episodes: make(map[string]*Episode),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "replay: read cassette")
	}
	var eps []*Episode
	if err := yaml.Unmarshal(data, &eps); err != nil {
		return nil, eris.Wrap(err, "replay: parse cassette")
	}
	for _, ep := range eps {
		c.episodes[ep.Key] = ep
	}
	return c, nil
}

// EpisodeKey hashes (method, url, body) into the cassette lookup key.
func EpisodeKey(method, url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// RoundTrip implements http.RoundTripper under the cassette's mode.
func (c *HTTPCassette) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "replay: read request body")
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	key := EpisodeKey(req.Method, req.URL.String(), body)

	if c.mode != ModeAll {
		c.mu.Lock()
		ep, ok := c.episodes[key]
		c.mu.Unlock()
		if ok {
			return ep.response(req), nil
		}
		if c.mode == ModeNone {
			return nil, eris.New(fmt.Sprintf("replay: no episode for %s %s", req.Method, req.URL))
		}
	}

	resp, err := c.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if c.mode == ModeOptional {
		return resp, nil
	}
	return c.record(key, req, resp)
}

func (c *HTTPCassette) record(key string, req *http.Request, resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, eris.Wrap(err, "replay: read response body")
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	ep := &Episode{
		Key:        key,
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       string(body),
	}

	c.mu.Lock()
	c.episodes[key] = ep
	c.dirty = true
	c.mu.Unlock()

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (ep *Episode) response(req *http.Request) *http.Response {
	header := make(http.Header, len(ep.Headers))
	for k, v := range ep.Headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode:    ep.StatusCode,
		Status:        fmt.Sprintf("%d %s", ep.StatusCode, http.StatusText(ep.StatusCode)),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader([]byte(ep.Body))),
		ContentLength: int64(len(ep.Body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}

// Save writes new episodes back to disk. A cassette with no new
// recordings is left untouched.
func (c *HTTPCassette) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	eps := make([]*Episode, 0, len(c.episodes))
	for _, ep := range c.episodes {
		eps = append(eps, ep)
	}
	sortEpisodes(eps)

	data, err := yaml.Marshal(eps)
	if err != nil {
		return eris.Wrap(err, "replay: marshal cassette")
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return eris.Wrap(err, "replay: write cassette")
	}
	c.dirty = false
	return nil
}

// sortEpisodes orders by key so saved cassettes diff cleanly.
func sortEpisodes(eps []*Episode) {
	sort.Slice(eps, func(i, j int) bool { return eps[i].Key < eps[j].Key })
}
