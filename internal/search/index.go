// Package search ranks menu items against what the cashier types.
//
// Matching is token based: item names and queries are case-folded and split
// into Unicode letter/number runs. A query token matches a name token when it
// is a prefix of it ("mas" finds "Masala Chai"), and the score is the Jaccard
// similarity of the two token sets counting those prefix matches as overlap.
// Ties break on shorter names, then alphabetically, so results are stable.
//
// An Index is immutable after construction and safe for concurrent use.
package search

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-pos-client/internal/domain"
)

// DefaultLimit caps results when the caller passes k <= 0.
const DefaultLimit = 20

// Result is a ranked menu item.
type Result struct {
	Item  domain.MenuItem
	Score float64
}

// Option configures an Index.
type Option func(*config)

type config struct {
	stopwords     map[string]struct{}
	availableOnly bool
}

// WithStopwords ignores words such as "the" or "with" in names and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithAvailableOnly drops items that are marked unavailable.
func WithAvailableOnly() Option {
	return func(c *config) { c.availableOnly = true }
}

type doc struct {
	item   domain.MenuItem
	tokens []string
	name   string
}

// Index is a searchable snapshot of the menu.
type Index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over items.
func NewIndex(items []domain.MenuItem, opts ...Option) *Index {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(items))
	for _, it := range items {
		if cfg.availableOnly && !it.IsAvailable {
			continue
		}
		toks := tokenize(it.Name, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{item: it, tokens: toks, name: fold(it.Name)})
	}
	return &Index{cfg: cfg, docs: docs}
}

// Len reports how many items are searchable.
func (i *Index) Len() int { return len(i.docs) }

// TopK returns up to k items matching q, best first. A blank query matches
// nothing.
func (i *Index) TopK(q string, k int) []Result {
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 || len(i.docs) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultLimit
	}

	type scored struct {
		doc   *doc
		score float64
	}
	var buf []scored
	for n := range i.docs {
		d := &i.docs[n]
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := len(qTokens) + len(d.tokens) - over
		buf = append(buf, scored{doc: d, score: float64(over) / float64(union)})
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if len(buf[a].doc.name) != len(buf[b].doc.name) {
			return len(buf[a].doc.name) < len(buf[b].doc.name)
		}
		return buf[a].doc.name < buf[b].doc.name
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Item: buf[n].doc.item, Score: buf[n].score}
	}
	return out
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold lower-cases with full Unicode case folding ("Straße" == "STRASSE").
func fold(s string) string { return cases.Fold().String(s) }

// tokenize returns the distinct tokens of s in order of appearance.
func tokenize(s string, stop map[string]struct{}) []string {
	words := wordRE.FindAllString(fold(s), -1)
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// overlap counts query tokens that prefix some name token; each name token
// is consumed at most once.
func overlap(query, name []string) int {
	used := make([]bool, len(name))
	n := 0
	for _, q := range query {
		for j, w := range name {
			if !used[j] && strings.HasPrefix(w, q) {
				used[j] = true
				n++
				break
			}
		}
	}
	return n
}
