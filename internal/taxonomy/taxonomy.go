// Package taxonomy holds the closed category hierarchy and resolves free-form
// labels onto it.
package taxonomy

import (
	"strings"
	"sync"

	"fintrack/internal/core"
)

// Scope groups the transaction types that share a category list.
type Scope string

const (
	ExpenseScope Scope = "expense"
	IncomeScope  Scope = "income"
)

// Entry is one top level category with its children and the keywords that
// hint at it.
type Entry struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	Keywords      []string `json:"-"`
}

// Taxonomy is safe for concurrent use. Entries keep declaration order.
type Taxonomy struct {
	mu      sync.RWMutex
	entries map[Scope][]Entry
}

// ScopeOf maps a transaction type to its category scope. Scheduled types use
// the scope of the flow they will become.
func ScopeOf(t core.TransactionType) (Scope, bool) {
	switch t {
	case core.Expense, core.ToPay:
		return ExpenseScope, true
	case core.Income, core.ToReceive:
		return IncomeScope, true
	}
	return "", false
}

// New builds a taxonomy from the given entries. The slices are copied.
func New(expense, income []Entry) *Taxonomy {
	return &Taxonomy{entries: map[Scope][]Entry{
		ExpenseScope: copyEntries(expense),
		IncomeScope:  copyEntries(income),
	}}
}

// Extend merges store supplied rows. Unknown categories are appended after
// the existing ones; known ones gain any new subcategories.
func (t *Taxonomy) Extend(rows []core.CategoryRow) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, row := range rows {
		scope, ok := ScopeOf(row.Type)
		if !ok {
			continue
		}
		name := clean(row.Category)
		if name == "" {
			continue
		}
		sub := clean(row.Subcategory)

		entries := t.entries[scope]
		idx := indexOf(entries, name)
		if idx < 0 {
			entries = append(entries, Entry{Name: name})
			idx = len(entries) - 1
		}
		if sub != "" && !containsFold(entries[idx].Subcategories, sub) {
			entries[idx].Subcategories = append(entries[idx].Subcategories, sub)
		}
		t.entries[scope] = entries
	}
}

// Entries returns a copy of the categories for the scope of typ.
func (t *Taxonomy) Entries(typ core.TransactionType) []Entry {
	scope, ok := ScopeOf(typ)
	if !ok {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyEntries(t.entries[scope])
}

// KnownCategories lists category and subcategory names for typ.
func (t *Taxonomy) KnownCategories(typ core.TransactionType) []string {
	return flatten(t.Entries(typ), nil)
}

// Names lists every label across both scopes without duplicates, expense
// scope first.
func (t *Taxonomy) Names() []string {
	seen := map[string]bool{}
	names := flatten(t.Entries(core.Expense), seen)
	return append(names, flatten(t.Entries(core.Income), seen)...)
}

func flatten(entries []Entry, seen map[string]bool) []string {
	if seen == nil {
		seen = map[string]bool{}
	}
	var out []string
	add := func(s string) {
		k := strings.ToLower(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	for _, e := range entries {
		add(e.Name)
		for _, s := range e.Subcategories {
			add(s)
		}
	}
	return out
}

func copyEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = Entry{
			Name:          e.Name,
			Subcategories: append([]string(nil), e.Subcategories...),
			Keywords:      append([]string(nil), e.Keywords...),
		}
	}
	return out
}

func indexOf(entries []Entry, name string) int {
	for i, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return i
		}
	}
	return -1
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// clean trims and collapses internal whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
