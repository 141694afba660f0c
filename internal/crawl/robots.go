package crawl

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// RobotsRule is one Allow or Disallow directive from a matching
// user-agent block, in file order.
type RobotsRule struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
}

// RobotsPolicy is the effective robots policy for one user agent.
type RobotsPolicy struct {
	Agent       string        `json:"agent"`
	Rules       []RobotsRule  `json:"rules"`
	CrawlDelay  time.Duration `json:"crawl_delay"`
	Sitemaps    []string      `json:"sitemaps"`
	FetchFailed bool          `json:"fetch_failed"`
}

// RobotsFile holds a fetched robots.txt so policies for several agents
// can be derived from one fetch. FetchFailed marks the explicit
// permissive fallback taken when robots.txt could not be retrieved.
type RobotsFile struct {
	Raw         string
	StatusCode  int
	FetchFailed bool
}

// PolicyFor parses the file for the given agent. A user-agent line
// matches when it is "*" or when agent is a case-insensitive substring
// of the listed name. On fetch failure the policy is permissive and
// carries the FetchFailed flag.
func (f *RobotsFile) PolicyFor(agent string) *RobotsPolicy {
	policy := &RobotsPolicy{Agent: agent, FetchFailed: f.FetchFailed}
	if f.FetchFailed || f.Raw == "" {
		return policy
	}

	agentLower := strings.ToLower(agent)

	// Group state: consecutive User-agent lines share the directives
	// that follow; a User-agent line after a directive starts a new
	// group.
	inMatchingGroup := false
	lastWasAgent := false

	for _, line := range strings.Split(f.Raw, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colon := strings.Index(line, ":")
		if colon < 0 {
			continue
		}
		field := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])

		switch field {
		case "user-agent":
			listed := strings.ToLower(value)
			matches := listed == "*" || strings.Contains(listed, agentLower)
			if lastWasAgent {
				inMatchingGroup = inMatchingGroup || matches
			} else {
				inMatchingGroup = matches
			}
			lastWasAgent = true

		case "disallow":
			lastWasAgent = false
			// Empty disallow means allow all; record nothing.
			if inMatchingGroup && value != "" {
				policy.Rules = append(policy.Rules, RobotsRule{Path: value, Allowed: false})
			}

		case "allow":
			lastWasAgent = false
			if inMatchingGroup && value != "" {
				policy.Rules = append(policy.Rules, RobotsRule{Path: value, Allowed: true})
			}

		case "crawl-delay":
			lastWasAgent = false
			if inMatchingGroup {
				if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
					policy.CrawlDelay = time.Duration(secs * float64(time.Second))
				}
			}

		case "sitemap":
			// Sitemap directives are global, not per-agent.
			lastWasAgent = false
			if value != "" {
				policy.Sitemaps = append(policy.Sitemaps, value)
			}

		default:
			lastWasAgent = false
		}
	}

	return policy
}

// IsAllowed reports whether the path may be crawled under this policy.
// The longest matching rule wins; with no matching rule the default is
// allow. On equal length an Allow rule beats a Disallow.
func (p *RobotsPolicy) IsAllowed(path string) bool {
	if path == "" {
		path = "/"
	}

	type match struct {
		length  int
		allowed bool
	}
	var matches []match
	for _, rule := range p.Rules {
		if robotsPathMatches(rule.Path, path) {
			matches = append(matches, match{length: len(rule.Path), allowed: rule.Allowed})
		}
	}
	if len(matches) == 0 {
		return true
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].length != matches[j].length {
			return matches[i].length > matches[j].length
		}
		return matches[i].allowed && !matches[j].allowed
	})
	return matches[0].allowed
}

// BlockedPaths returns the disallowed path patterns, used for per-bot
// diagnostics.
func (p *RobotsPolicy) BlockedPaths() []string {
	var out []string
	for _, rule := range p.Rules {
		if !rule.Allowed {
			out = append(out, rule.Path)
		}
	}
	return out
}

// BlocksAll reports whether the policy disallows the site root.
func (p *RobotsPolicy) BlocksAll() bool {
	return !p.IsAllowed("/")
}

// robotsPathMatches matches a robots.txt path pattern against a request
// path. "*" matches any character sequence; "$" anchors the pattern at
// the end of the path; otherwise the pattern is a prefix match.
func robotsPathMatches(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	parts := strings.Split(pattern, "*")

	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	idx := len(parts[0])

	for i := 1; i < len(parts); i++ {
		part := parts[i]
		if part == "" {
			// Trailing "*" consumes the rest.
			if i == len(parts)-1 {
				return true
			}
			continue
		}
		// The final part of an anchored pattern must end the path.
		if anchored && i == len(parts)-1 {
			return strings.HasSuffix(path[idx:], part)
		}
		pos := strings.Index(path[idx:], part)
		if pos < 0 {
			return false
		}
		idx += pos + len(part)
	}

	if anchored {
		return idx == len(path)
	}
	return true
}
