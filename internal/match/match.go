// Package match resolves free-form outlet names against the bias catalog.
package match

import (
	"sort"
	"strings"

	"biaslens/internal/catalog"
	"biaslens/internal/logging"
	"biaslens/internal/metrics"
	"biaslens/internal/model"
	"biaslens/internal/util"
)

const (
	// FuzzyCutoff is the lowest similarity accepted by the fuzzy tier.
	FuzzyCutoff = 0.6
	// fuzzyMinLen: the fuzzy tier needs a normalized name longer than this.
	fuzzyMinLen = 3
	// closestMinLen: FindClosest needs a normalized name at least this long.
	closestMinLen = 3
)

// SourceMatch is the resolved bias of one outlet. Found is false when no
// tier matched; Bias and Confidence are meaningless then.
type SourceMatch struct {
	Found      bool
	Bias       model.BiasLabel
	Confidence float64
	// Matched is the catalog's original name for the winning record.
	Matched string
	Tier    string
}

// Candidate is one entry of a similarity search.
type Candidate struct {
	OriginalName string
	Similarity   float64
}

// Resolver is anything that can resolve an outlet name.
type Resolver interface {
	Resolve(name string) SourceMatch
}

// Provider hands out the catalog snapshot to match against.
// *catalog.Store and *catalog.Catalog both satisfy it.
type Provider interface {
	Current() *catalog.Catalog
}

// Matcher resolves names with the exact, substring and fuzzy tiers in that order.
type Matcher struct {
	catalogs Provider
}

func NewMatcher(p Provider) *Matcher {
	return &Matcher{catalogs: p}
}

// Resolve never fails: an unknown outlet gives a SourceMatch with Found unset.
// The whole call runs against one snapshot even if a refresh lands meanwhile.
func (m *Matcher) Resolve(name string) SourceMatch {
	c := m.catalogs.Current()
	key := util.NormalizeSource(name)
	res := resolveIn(c, key)
	metrics.IncMatch(res.tier())
	switch res.Tier {
	case "exact":
		logging.Debug("match_exact", map[string]any{"source": name, "matched": res.Matched})
	case "":
		logging.Warn("match_none", map[string]any{"source": name})
	default:
		logging.Info("match_"+res.Tier, map[string]any{"source": name, "matched": res.Matched})
	}
	return res
}

func (s SourceMatch) tier() string {
	if s.Tier == "" {
		return "none"
	}
	return s.Tier
}

func resolveIn(c *catalog.Catalog, key string) SourceMatch {
	if key == "" {
		return SourceMatch{}
	}
	if r, ok := c.Lookup(key); ok {
		return found(r, "exact")
	}

	var best catalog.Record
	var have bool
	for _, k := range c.Keys() {
		if !strings.Contains(k, key) && !strings.Contains(key, k) {
			continue
		}
		r, _ := c.Lookup(k)
		if !have || better(r, best) {
			best, have = r, true
		}
	}
	if have {
		return found(best, "substring")
	}

	if len(key) > fuzzyMinLen {
		bestScore := -1.0
		for _, k := range c.Keys() {
			score := Similarity(key, k)
			r, _ := c.Lookup(k)
			if score > bestScore || (score == bestScore && better(r, best)) {
				best, bestScore = r, score
			}
		}
		if bestScore >= FuzzyCutoff {
			return found(best, "fuzzy")
		}
	}
	return SourceMatch{}
}

// better orders equally good candidates: higher confidence, then shorter
// key, then lexicographically smaller key.
func better(a, b catalog.Record) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if len(a.NormalizedName) != len(b.NormalizedName) {
		return len(a.NormalizedName) < len(b.NormalizedName)
	}
	return a.NormalizedName < b.NormalizedName
}

func found(r catalog.Record, tier string) SourceMatch {
	return SourceMatch{Found: true, Bias: r.Bias, Confidence: r.Confidence, Matched: r.OriginalName, Tier: tier}
}

// FindClosest ranks every catalog entry by similarity to name and returns the
// top n, best first. Ties follow the same order as the substring tier.
func (m *Matcher) FindClosest(name string, n int) []Candidate {
	c := m.catalogs.Current()
	key := util.NormalizeSource(name)
	if len(key) < closestMinLen || n <= 0 {
		return nil
	}
	type scored struct {
		rec   catalog.Record
		score float64
	}
	all := make([]scored, 0, c.Len())
	for _, k := range c.Keys() {
		r, _ := c.Lookup(k)
		all = append(all, scored{rec: r, score: Similarity(key, k)})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return better(all[i].rec, all[j].rec)
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]Candidate, len(all))
	for i, s := range all {
		out[i] = Candidate{OriginalName: c.OriginalName(s.rec.NormalizedName), Similarity: s.score}
	}
	return out
}

// Memo caches resolutions for the lifetime of one request. It is not safe
// for concurrent use.
type Memo struct {
	r    Resolver
	seen map[string]SourceMatch
}

func NewMemo(r Resolver) *Memo {
	return &Memo{r: r, seen: make(map[string]SourceMatch)}
}

func (m *Memo) Resolve(name string) SourceMatch {
	if s, ok := m.seen[name]; ok {
		return s
	}
	s := m.r.Resolve(name)
	m.seen[name] = s
	return s
}
