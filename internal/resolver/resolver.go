// Package resolver maps user-supplied beneficiary phrases to canonical
// registry names. The registry is the beneficiary side table, loaded
// once at startup into an in-memory index and consumed read-only.
package resolver

import (
	"sort"
	"strings"

	"osservatorio/internal/normalize"
)

// Index is a prefix-searchable mapping from normalized beneficiary name
// to the canonical spelling. Immutable after construction.
type Index struct {
	keys      []string
	canonical map[string]string
}

// NewIndex builds the index from normalized-name -> canonical-name
// pairs. Keys are expected to already be in normalize.Name form; they
// are re-normalized anyway so a stale registry row cannot break the
// prefix search.
func NewIndex(entries map[string]string) *Index {
	idx := &Index{canonical: make(map[string]string, len(entries))}
	for key, name := range entries {
		key = normalize.Name(key)
		if key == "" {
			continue
		}
		if _, dup := idx.canonical[key]; !dup {
			idx.keys = append(idx.keys, key)
		}
		idx.canonical[key] = name
	}
	sort.Strings(idx.keys)
	return idx
}

// Resolve returns the canonical beneficiary name whose normalized form
// has the query's normalization as a prefix. Among multiple matches the
// shortest key wins, favoring the general canonical form over longer
// qualified variants. Resolution never fails: with no match (or an
// empty normalization) the trimmed input comes back unchanged and the
// boolean is false.
func (x *Index) Resolve(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	prefix := normalize.Name(trimmed)
	if prefix == "" {
		return trimmed, false
	}

	// keys are sorted, so all prefix matches sit in one contiguous run
	// starting at the lower bound.
	i := sort.SearchStrings(x.keys, prefix)
	best := ""
	for ; i < len(x.keys) && strings.HasPrefix(x.keys[i], prefix); i++ {
		if best == "" || len(x.keys[i]) < len(best) {
			best = x.keys[i]
		}
	}
	if best == "" {
		return trimmed, false
	}
	return x.canonical[best], true
}

// Len reports how many registry entries the index holds.
func (x *Index) Len() int { return len(x.keys) }
