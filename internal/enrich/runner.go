package enrich

import (
	"context"
	"log"
	"sort"
	"time"

	"osservatorio/internal/normalize"
	"osservatorio/internal/store"
)

// Storage is the slice of the payments store the crawler needs.
type Storage interface {
	EnsureEnrichmentSchema(ctx context.Context) error
	ListBeneficiaries(ctx context.Context) ([]string, error)
	HasBeneficiaryInfo(ctx context.Context, beneficiary string) (bool, error)
	UpsertBeneficiaryInfo(ctx context.Context, info store.BeneficiaryInfo) error
}

// Searcher performs one Wikipedia lookup.
type Searcher interface {
	Summary(ctx context.Context, term string) Lookup
}

// Stats summarizes one crawler run.
type Stats struct {
	Groups   int
	Searched int
	Found    int
	Skipped  int
	Errors   int
}

// Runner walks every distinct beneficiary, groups spelling variants by
// their normalized name and performs at most one Wikipedia search per
// group, spacing API calls by the configured delay.
type Runner struct {
	store Storage
	wiki  Searcher
	delay time.Duration
}

func NewRunner(st Storage, wiki Searcher, delay time.Duration) *Runner {
	return &Runner{store: st, wiki: wiki, delay: delay}
}

func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := r.store.EnsureEnrichmentSchema(ctx); err != nil {
		return stats, err
	}
	names, err := r.store.ListBeneficiaries(ctx)
	if err != nil {
		return stats, err
	}

	groups := make(map[string][]string)
	for _, name := range names {
		key := normalize.Name(name)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], name)
	}
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	stats.Groups = len(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		variants := groups[key]
		representative := variants[0]

		if ShouldSkip(representative, key) {
			stats.Skipped++
			r.writeAll(ctx, variants, key, Lookup{SearchTerm: "N/A (skipped)", Status: store.StatusSkippedFilter}, &stats)
			continue
		}

		done, err := r.store.HasBeneficiaryInfo(ctx, representative)
		if err != nil {
			log.Printf("enrich: lookup state check failed for %q: %v", representative, err)
			stats.Errors++
			continue
		}
		if done {
			stats.Skipped++
			continue
		}

		if stats.Searched > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(r.delay):
			}
		}

		result := r.wiki.Summary(ctx, representative)
		stats.Searched++
		switch result.Status {
		case store.StatusFound:
			stats.Found++
		case store.StatusError:
			stats.Errors++
		}
		r.writeAll(ctx, variants, key, result, &stats)
	}

	log.Printf("enrich: run complete: %d groups, %d searched, %d found, %d skipped, %d errors",
		stats.Groups, stats.Searched, stats.Found, stats.Skipped, stats.Errors)
	return stats, nil
}

// writeAll persists one lookup result for every spelling variant of a
// beneficiary group.
func (r *Runner) writeAll(ctx context.Context, variants []string, normalized string, result Lookup, stats *Stats) {
	for _, variant := range variants {
		info := store.BeneficiaryInfo{
			Beneficiary: variant,
			Normalized:  normalized,
			SearchTerm:  result.SearchTerm,
			Status:      result.Status,
			URL:         result.URL,
			Summary:     result.Summary,
		}
		if err := r.store.UpsertBeneficiaryInfo(ctx, info); err != nil {
			log.Printf("enrich: upsert failed for %q: %v", variant, err)
			stats.Errors++
		}
	}
}
