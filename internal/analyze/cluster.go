package analyze

import (
	"github.com/findablehq/findable-cli/internal/model"
)

// Topic-cluster thresholds over word counts and link degrees.
const (
	pillarMinWords     = 1500
	pillarMinOutbound  = 5
	clusterMinWords    = 300
	thinContentDefault = 300
)

// PageRole classifies a page's place in the site's topic graph.
type PageRole string

const (
	RolePillar  PageRole = "pillar"
	RoleCluster PageRole = "cluster"
	RoleOrphan  PageRole = "orphan"
	RoleThin    PageRole = "thin"
	RoleOther   PageRole = "other"
)

// ClusterPage is one page's classification in the topic graph.
type ClusterPage struct {
	URL           string   `json:"url"`
	Role          PageRole `json:"role"`
	WordCount     int      `json:"word_count"`
	InboundLinks  int      `json:"inbound_links"`
	OutboundLinks int      `json:"outbound_links"`
}

// TopicClusterResult is the site-level topic-graph analysis.
type TopicClusterResult struct {
	Score           float64       `json:"score"`
	Level           model.Level   `json:"level"`
	Pages           []ClusterPage `json:"pages,omitempty"`
	PillarCount     int           `json:"pillar_count"`
	ClusterCount    int           `json:"cluster_count"`
	OrphanCount     int           `json:"orphan_count"`
	ThinCount       int           `json:"thin_count"`
	BidirectionalPairs int        `json:"bidirectional_pairs"`
	LinkHealthScore float64       `json:"link_health_score"`
	CoverageScore   float64       `json:"coverage_score"`
	Issues          []string      `json:"issues,omitempty"`
}

// AnalyzeTopicClusters classifies crawled pages into pillars (long
// form, many outbound internal links), clusters (medium form, linked
// from a pillar and linking back), orphans (no inbound links), and
// thin pages. The link graph comes from the crawl's per-page link
// lists restricted to crawled URLs.
func AnalyzeTopicClusters(pages []Page, links map[string][]string, thinWords int) TopicClusterResult {
	r := TopicClusterResult{}
	if thinWords <= 0 {
		thinWords = thinContentDefault
	}
	if len(pages) == 0 {
		r.Level = model.LevelLimited
		r.Issues = append(r.Issues, "no pages to cluster")
		return r
	}

	crawled := make(map[string]bool, len(pages))
	for _, p := range pages {
		crawled[p.Extracted.URL] = true
	}

	inbound := make(map[string]int)
	outbound := make(map[string][]string)
	for src, targets := range links {
		if !crawled[src] {
			continue
		}
		for _, dst := range targets {
			if dst == src || !crawled[dst] {
				continue
			}
			outbound[src] = append(outbound[src], dst)
			inbound[dst]++
		}
	}

	roles := make(map[string]PageRole, len(pages))
	for _, p := range pages {
		url := p.Extracted.URL
		cp := ClusterPage{
			URL:           url,
			WordCount:     p.Extracted.WordCount,
			InboundLinks:  inbound[url],
			OutboundLinks: len(outbound[url]),
		}

		switch {
		case cp.WordCount < thinWords:
			cp.Role = RoleThin
			r.ThinCount++
		case cp.WordCount >= pillarMinWords && cp.OutboundLinks >= pillarMinOutbound:
			cp.Role = RolePillar
			r.PillarCount++
		case cp.InboundLinks == 0 && url != "" && cp.WordCount >= thinWords:
			cp.Role = RoleOrphan
			r.OrphanCount++
		case cp.WordCount >= clusterMinWords:
			cp.Role = RoleCluster
			r.ClusterCount++
		default:
			cp.Role = RoleOther
		}
		roles[url] = cp.Role
		r.Pages = append(r.Pages, cp)
	}

	// Bidirectional pillar<->cluster pairs.
	seenPair := make(map[string]bool)
	for src, targets := range outbound {
		if roles[src] != RolePillar {
			continue
		}
		for _, dst := range targets {
			if roles[dst] != RoleCluster {
				continue
			}
			for _, back := range outbound[dst] {
				if back == src {
					key := src + "\x00" + dst
					if !seenPair[key] {
						seenPair[key] = true
						r.BidirectionalPairs++
					}
					break
				}
			}
		}
	}

	total := float64(len(pages))

	// Coverage: how much of the site participates in a topic cluster.
	clustered := float64(r.PillarCount + r.ClusterCount)
	r.CoverageScore = clamp(100 * clustered / total)

	// Link health: penalize orphans and thin pages, reward
	// bidirectional pairs.
	health := 100.0
	health -= 100 * float64(r.OrphanCount) / total * 0.6
	health -= 100 * float64(r.ThinCount) / total * 0.4
	if r.PillarCount > 0 {
		health += 5 * float64(r.BidirectionalPairs)
	}
	r.LinkHealthScore = clamp(health)

	r.Score = clamp(0.5*r.CoverageScore + 0.5*r.LinkHealthScore)
	r.Level = model.LevelForScore(r.Score)

	if r.PillarCount == 0 {
		r.Issues = append(r.Issues, "no pillar pages; long-form hub content anchors topic authority")
	}
	if r.OrphanCount > 0 {
		r.Issues = append(r.Issues, "orphan pages receive no internal links")
	}
	if r.ThinCount > 0 {
		r.Issues = append(r.Issues, "thin pages under the word-count floor")
	}
	return r
}
