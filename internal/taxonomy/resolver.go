package taxonomy

import (
	"strings"

	"fintrack/internal/core"
)

// DefaultThreshold is the minimum fuzzy score accepted as a match.
const DefaultThreshold = 0.3

// hintWeight scales note matches so an explicit label always outranks a
// keyword found in free text.
const hintWeight = 0.5

type Match int

const (
	Exact Match = iota
	Fuzzy
	Fallback
)

func (m Match) String() string {
	switch m {
	case Exact:
		return "exact"
	case Fuzzy:
		return "fuzzy"
	case Fallback:
		return "fallback"
	}
	return "unknown"
}

type Resolution struct {
	Category    string
	Subcategory string
	Match       Match
	Score       float64
}

// Resolver maps extracted labels onto the taxonomy. It never returns an
// empty category.
type Resolver struct {
	tax       *Taxonomy
	threshold float64
}

func NewResolver(tax *Taxonomy, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{tax: tax, threshold: threshold}
}

// Taxonomy returns the hierarchy the resolver reads from.
func (r *Resolver) Taxonomy() *Taxonomy { return r.tax }

func (r *Resolver) Resolve(category, subcategory string, t core.TransactionType) Resolution {
	return r.ResolveWithHint(category, subcategory, "", t)
}

// ResolveWithHint is Resolve with extra free text (usually the note) that is
// searched for keywords when the labels alone do not match.
func (r *Resolver) ResolveWithHint(category, subcategory, hint string, t core.TransactionType) Resolution {
	cat, sub := clean(category), clean(subcategory)

	scope, ok := ScopeOf(t)
	if !ok {
		return Resolution{Category: core.Uncategorized, Subcategory: sub, Match: Fallback}
	}
	entries := r.tax.Entries(t)

	if res, ok := exact(entries, cat, sub); ok {
		return res
	}

	if res, ok := r.fuzzy(entries, cat, sub, hint); ok {
		return res
	}

	name := OtherExpenses
	if scope == IncomeScope {
		name = OtherIncome
	}
	return Resolution{Category: name, Subcategory: sub, Match: Fallback}
}

func exact(entries []Entry, cat, sub string) (Resolution, bool) {
	if cat != "" {
		for _, e := range entries {
			if strings.EqualFold(e.Name, cat) {
				return Resolution{Category: e.Name, Subcategory: canonical(e, sub), Match: Exact, Score: 1}, true
			}
		}
	}
	label := cat
	if label == "" {
		label = sub
	}
	if label == "" {
		return Resolution{}, false
	}
	for _, e := range entries {
		for _, s := range e.Subcategories {
			if strings.EqualFold(s, label) {
				return Resolution{Category: e.Name, Subcategory: s, Match: Exact, Score: 1}, true
			}
		}
	}
	return Resolution{}, false
}

func (r *Resolver) fuzzy(entries []Entry, cat, sub, hint string) (Resolution, bool) {
	label := tokens(cat + " " + sub)
	text := tokens(hint)
	if len(label) == 0 && len(text) == 0 {
		return Resolution{}, false
	}

	best, bestIdx, bestSub := 0.0, -1, ""
	consider := func(i int, term string, isSub bool) {
		tt := tokens(term)
		score := jaccard(tt, label)
		if h := hintWeight * containment(tt, text); h > score {
			score = h
		}
		if score > best {
			best, bestIdx, bestSub = score, i, ""
			if isSub {
				bestSub = term
			}
		}
	}
	for i, e := range entries {
		consider(i, e.Name, false)
		for _, s := range e.Subcategories {
			consider(i, s, true)
		}
		for _, k := range e.Keywords {
			consider(i, k, false)
		}
	}
	if bestIdx < 0 || best < r.threshold {
		return Resolution{}, false
	}

	e := entries[bestIdx]
	out := Resolution{Category: e.Name, Subcategory: bestSub, Match: Fuzzy, Score: best}
	if sub != "" {
		out.Subcategory = canonical(e, sub)
	}
	return out, true
}

func canonical(e Entry, sub string) string {
	for _, s := range e.Subcategories {
		if strings.EqualFold(s, sub) {
			return s
		}
	}
	return sub
}
