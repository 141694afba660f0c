package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFold strips combining marks so accented and plain spellings
// tokenize identically ("café" and "cafe").
var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Model maps text to a fixed-dimension vector. Implementations must be
// deterministic: identical (name, text) pairs produce bitwise-identical
// vectors, and output is L2-normalized.
type Model interface {
	Name() string
	Dimensions() int
	Embed(text string) ([]float32, error)
}

// Embedder wraps a Model with a content-hash keyed cache.
type Embedder struct {
	model Model

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewEmbedder returns a caching embedder over the given model.
func NewEmbedder(model Model) *Embedder {
	return &Embedder{
		model: model,
		cache: make(map[string][]float32),
	}
}

// ModelName returns the underlying model's name.
func (e *Embedder) ModelName() string { return e.model.Name() }

// Dimensions returns the underlying model's vector width.
func (e *Embedder) Dimensions() int { return e.model.Dimensions() }

// ContentHash returns the SHA-256 hex digest used as the cache and
// storage key for a chunk's content.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the vector for text, serving repeats from cache. The
// returned slice is shared; callers must not mutate it.
func (e *Embedder) Embed(text string) ([]float32, bool, error) {
	key := ContentHash(text)

	e.mu.RLock()
	v, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return v, true, nil
	}

	v, err := e.model.Embed(text)
	if err != nil {
		return nil, false, eris.Wrap(err, "index: embed")
	}

	e.mu.Lock()
	e.cache[key] = v
	e.mu.Unlock()
	return v, false, nil
}

// HashModel is the built-in deterministic embedding model ("hash-v1").
// It feature-hashes lowercased tokens and token bigrams into d buckets
// with a sign hash, then L2-normalizes. It carries no semantics beyond
// lexical overlap, which is enough for the retriever's contract:
// identical text gives identical vectors and shared vocabulary raises
// cosine similarity.
type HashModel struct {
	name string
	dims int
}

// NewHashModel returns the hash-v1 model at the given dimensionality.
func NewHashModel(dims int) *HashModel {
	if dims <= 0 {
		dims = 384
	}
	return &HashModel{name: "hash-v1", dims: dims}
}

func (m *HashModel) Name() string    { return m.name }
func (m *HashModel) Dimensions() int { return m.dims }

// Embed hashes each token and each adjacent token bigram into a
// bucket, accumulating +1 or -1 by sign bit, then normalizes.
func (m *HashModel) Embed(text string) ([]float32, error) {
	v := make([]float32, m.dims)
	tokens := Tokenize(text)

	add := func(feature string) {
		sum := sha256.Sum256([]byte(feature))
		bucket := binary.BigEndian.Uint32(sum[0:4]) % uint32(m.dims)
		if sum[4]&1 == 0 {
			v[bucket]++
		} else {
			v[bucket]--
		}
	}

	for i, t := range tokens {
		add(t)
		if i > 0 {
			add(tokens[i-1] + " " + t)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range v {
			v[i] = float32(float64(v[i]) * inv)
		}
	}
	return v, nil
}

// Tokenize lowercases, folds accents, and splits on non-alphanumeric
// runs. Shared by the embedder and the lexical scorer so both see the
// same tokens.
func Tokenize(text string) []string {
	if folded, _, err := transform.String(accentFold, text); err == nil {
		text = folded
	}
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Cosine returns the cosine similarity of two vectors. Mismatched
// lengths score zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
