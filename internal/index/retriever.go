package index

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/findablehq/findable-cli/internal/model"
)

// BM25-ish lexical constants tuned for short chunks.
const (
	bm25K1       = 1.2
	bm25B        = 0.75
	headingBoost = 1.3
)

// Retriever is an in-memory per-site hybrid index: cosine k-NN over
// chunk embeddings blended with a BM25-style lexical score. Writes are
// serialized; reads may run concurrently during simulation.
type Retriever struct {
	embedder      *Embedder
	vectorWeight  float64
	lexicalWeight float64

	mu        sync.RWMutex
	docs      []indexedDoc
	docTokens map[string]map[string]int // doc_id -> term frequencies
	docLens   map[string]int
	df        map[string]int // term -> docs containing it
	totalLen  int
}

type indexedDoc struct {
	chunk  model.Chunk
	vector []float32
	hash   string
}

// NewRetriever returns an empty index. The vector/lexical weights form
// the convex blend; they are normalized so they sum to 1.
func NewRetriever(embedder *Embedder, vectorWeight, lexicalWeight float64) *Retriever {
	total := vectorWeight + lexicalWeight
	if total <= 0 {
		vectorWeight, lexicalWeight, total = 0.65, 0.35, 1
	}
	return &Retriever{
		embedder:      embedder,
		vectorWeight:  vectorWeight / total,
		lexicalWeight: lexicalWeight / total,
		docTokens:     make(map[string]map[string]int),
		docLens:       make(map[string]int),
		df:            make(map[string]int),
	}
}

// Len returns the number of indexed chunks.
func (r *Retriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Embeddings returns stored-embedding rows for persistence, in index
// order.
func (r *Retriever) Embeddings(siteID string) []model.StoredEmbedding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.StoredEmbedding, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, model.StoredEmbedding{
			ChunkID:     d.chunk.ChunkID,
			PageID:      d.chunk.PageID,
			SiteID:      siteID,
			Content:     d.chunk.Content,
			ContentHash: d.hash,
			Embedding:   d.vector,
			ModelName:   r.embedder.ModelName(),
			Dimensions:  r.embedder.Dimensions(),
		})
	}
	return out
}

// Add embeds and indexes chunks. A chunk whose content hash is already
// indexed replaces the existing doc in place, keeping (content_hash)
// unique within the site index.
func (r *Retriever) Add(chunks []model.Chunk) error {
	for _, ch := range chunks {
		vec, _, err := r.embedder.Embed(ch.Content)
		if err != nil {
			return eris.Wrapf(err, "index: add chunk %s", ch.ChunkID)
		}
		r.upsert(ch, vec)
	}
	zap.L().Debug("chunks indexed", zap.Int("added", len(chunks)), zap.Int("total", r.Len()))
	return nil
}

func (r *Retriever) upsert(ch model.Chunk, vec []float32) {
	hash := ContentHash(ch.Content)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.docs {
		if d.hash == hash {
			r.removeLexical(d.chunk.ChunkID)
			r.docs[i] = indexedDoc{chunk: ch, vector: vec, hash: hash}
			r.addLexical(ch)
			return
		}
	}
	r.docs = append(r.docs, indexedDoc{chunk: ch, vector: vec, hash: hash})
	r.addLexical(ch)
}

func (r *Retriever) addLexical(ch model.Chunk) {
	tf := make(map[string]int)
	for _, t := range Tokenize(ch.Content) {
		tf[t]++
	}
	// Heading terms count extra so queries matching the section title
	// rank its chunks higher.
	for _, t := range Tokenize(ch.HeadingContext) {
		tf[t] += 2
	}
	n := 0
	for t, c := range tf {
		r.df[t]++
		n += c
	}
	r.docTokens[ch.ChunkID] = tf
	r.docLens[ch.ChunkID] = n
	r.totalLen += n
}

func (r *Retriever) removeLexical(docID string) {
	tf, ok := r.docTokens[docID]
	if !ok {
		return
	}
	for t := range tf {
		if r.df[t] > 1 {
			r.df[t]--
		} else {
			delete(r.df, t)
		}
	}
	r.totalLen -= r.docLens[docID]
	delete(r.docTokens, docID)
	delete(r.docLens, docID)
}

// Retrieve returns the top-k chunks for the query under the hybrid
// blend. Ties break on descending score, then lower position ratio,
// then doc id.
func (r *Retriever) Retrieve(query string, k int) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		k = 5
	}
	qvec, _, err := r.embedder.Embed(query)
	if err != nil {
		return nil, eris.Wrap(err, "index: embed query")
	}
	qTokens := Tokenize(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.docs) == 0 {
		return nil, nil
	}

	type scored struct {
		doc     *indexedDoc
		score   float64
		cosine  float64
		lexical float64
	}
	results := make([]scored, 0, len(r.docs))
	maxLex := 0.0
	for i := range r.docs {
		d := &r.docs[i]
		cos := Cosine(qvec, d.vector)
		lex := r.bm25(qTokens, d.chunk.ChunkID)
		if headingMatches(qTokens, d.chunk.HeadingContext) {
			lex *= headingBoost
		}
		if lex > maxLex {
			maxLex = lex
		}
		results = append(results, scored{doc: d, cosine: cos, lexical: lex})
	}

	// Normalize lexical scores into [0,1] before blending so the two
	// signals share a scale.
	for i := range results {
		lex := results[i].lexical
		if maxLex > 0 {
			lex /= maxLex
		}
		cos := clampUnit((results[i].cosine + 1) / 2)
		results[i].score = r.vectorWeight*cos + r.lexicalWeight*lex
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].doc.chunk.PositionRatio != results[j].doc.chunk.PositionRatio {
			return results[i].doc.chunk.PositionRatio < results[j].doc.chunk.PositionRatio
		}
		return results[i].doc.chunk.ChunkID < results[j].doc.chunk.ChunkID
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]model.RetrievedChunk, 0, k)
	for _, s := range results[:k] {
		out = append(out, model.RetrievedChunk{
			DocID:          s.doc.chunk.ChunkID,
			Content:        s.doc.chunk.Content,
			Score:          s.score,
			Distance:       1 - s.cosine,
			HeadingContext: s.doc.chunk.HeadingContext,
			SourceURL:      s.doc.chunk.SourceURL,
			PageTitle:      s.doc.chunk.PageTitle,
			PositionRatio:  s.doc.chunk.PositionRatio,
		})
	}
	return out, nil
}

// bm25 scores the query terms against one doc. Heading matches were
// already folded into term frequencies at index time; an additional
// multiplicative boost applies when any query term appears in the
// heading chain.
func (r *Retriever) bm25(qTokens []string, docID string) float64 {
	tf := r.docTokens[docID]
	if len(tf) == 0 || len(qTokens) == 0 {
		return 0
	}
	n := float64(len(r.docs))
	avgLen := float64(r.totalLen) / n
	docLen := float64(r.docLens[docID])

	score := 0.0
	for _, t := range qTokens {
		f := float64(tf[t])
		if f == 0 {
			continue
		}
		df := float64(r.df[t])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		score += idf * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
	}
	return score
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// headingMatches reports whether any query token appears in the
// heading context.
func headingMatches(qTokens []string, headingContext string) bool {
	if headingContext == "" {
		return false
	}
	h := strings.ToLower(headingContext)
	for _, t := range qTokens {
		if strings.Contains(h, t) {
			return true
		}
	}
	return false
}
