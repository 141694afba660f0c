package replay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LLMEpisode is one recorded prompt/response pair for a given model.
type LLMEpisode struct {
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
	Prompt   string `yaml:"prompt"`
	Response string `yaml:"response"`
}

// LLMCassette records and replays LLM completions keyed by
// hash(prompt, model). With a fuzzy threshold above zero a miss falls
// back to the stored prompt with the highest Jaccard token similarity
// for the same model.
type LLMCassette struct {
	path           string
	fuzzyThreshold float64

	mu       sync.Mutex
	episodes map[string]*LLMEpisode
	dirty    bool
}

// OpenLLMCassette loads the cassette at path, creating an empty one
// when missing. fuzzyThreshold of 0 disables fuzzy matching.
func OpenLLMCassette(path string, fuzzyThreshold float64) (*LLMCassette, error) {
	c := &LLMCassette{
		path:           path,
		fuzzyThreshold: fuzzyThreshold,
		episodes:       make(map[string]*LLMEpisode),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "replay: read llm cassette")
	}
	var eps []*LLMEpisode
	if err := yaml.Unmarshal(data, &eps); err != nil {
		return nil, eris.Wrap(err, "replay: parse llm cassette")
	}
	for _, ep := range eps {
		c.episodes[ep.Key] = ep
	}
	return c, nil
}

// LLMKey hashes (prompt, model) into the lookup key.
func LLMKey(prompt, model string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the recorded response for the prompt, trying exact
// match first, then fuzzy.
func (c *LLMCassette) Lookup(prompt, model string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ep, ok := c.episodes[LLMKey(prompt, model)]; ok {
		return ep.Response, true
	}
	if c.fuzzyThreshold <= 0 {
		return "", false
	}

	want := tokenSet(prompt)
	best := ""
	bestSim := c.fuzzyThreshold
	// Iterate in key order so equal similarities resolve the same way
	// every run.
	keys := make([]string, 0, len(c.episodes))
	for k := range c.episodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ep := c.episodes[k]
		if ep.Model != model {
			continue
		}
		if sim := jaccard(want, tokenSet(ep.Prompt)); sim >= bestSim {
			bestSim = sim
			best = ep.Response
		}
	}
	return best, best != ""
}

// Record stores a completion. Append-only; re-recording the same key
// overwrites in place.
func (c *LLMCassette) Record(prompt, model, response string) {
	key := LLMKey(prompt, model)
	c.mu.Lock()
	c.episodes[key] = &LLMEpisode{Key: key, Model: model, Prompt: prompt, Response: response}
	c.dirty = true
	c.mu.Unlock()
}

// MustLookup is Lookup with an error for replay-only harnesses.
func (c *LLMCassette) MustLookup(prompt, model string) (string, error) {
	resp, ok := c.Lookup(prompt, model)
	if !ok {
		return "", eris.New(fmt.Sprintf("replay: no llm episode for model %s", model))
	}
	return resp, nil
}

// Save writes new episodes to disk in key order.
func (c *LLMCassette) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	eps := make([]*LLMEpisode, 0, len(c.episodes))
	for _, ep := range c.episodes {
		eps = append(eps, ep)
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Key < eps[j].Key })

	data, err := yaml.Marshal(eps)
	if err != nil {
		return eris.Wrap(err, "replay: marshal llm cassette")
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return eris.Wrap(err, "replay: write llm cassette")
	}
	c.dirty = false
	return nil
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		set[t] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
