package store

import (
	"context"
	"fmt"
)

// BeneficiaryInfo is one row of the enrichment side table.
type BeneficiaryInfo struct {
	Beneficiary string
	Normalized  string
	SearchTerm  string
	Status      string
	URL         string
	Summary     string
}

// Enrichment lookup statuses written by the crawler. The pipeline only
// ever surfaces summaries for StatusFound.
const (
	StatusFound         = "found"
	StatusNotFound      = "not_found"
	StatusError         = "error"
	StatusSkippedFilter = "skipped_filter"
)

// ListBeneficiaries returns every distinct beneficiary of the payments
// table, the enrichment crawler's work list.
func (s *Store) ListBeneficiaries(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT beneficiario FROM pagamenti
		WHERE beneficiario <> '' ORDER BY beneficiario`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list beneficiaries: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list beneficiaries scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// EnsureEnrichmentSchema creates the side table when it is absent. Only
// the enricher job calls this; the query pipeline never mutates schema.
func (s *Store) EnsureEnrichmentSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS beneficiari_info (
		beneficiario          TEXT PRIMARY KEY,
		nome_normalizzato     TEXT NOT NULL,
		nome_usato_per_ricerca TEXT NOT NULL DEFAULT '',
		lookup_status         TEXT NOT NULL,
		wikipedia_url         TEXT NOT NULL DEFAULT '',
		wikipedia_summary     TEXT
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure enrichment schema: %w", err)
	}
	return nil
}

// UpsertBeneficiaryInfo writes one crawler result, replacing any
// earlier row for the same beneficiary.
func (s *Store) UpsertBeneficiaryInfo(ctx context.Context, info BeneficiaryInfo) error {
	const q = `INSERT INTO beneficiari_info
		(beneficiario, nome_normalizzato, nome_usato_per_ricerca, lookup_status, wikipedia_url, wikipedia_summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (beneficiario) DO UPDATE SET
			nome_normalizzato = EXCLUDED.nome_normalizzato,
			nome_usato_per_ricerca = EXCLUDED.nome_usato_per_ricerca,
			lookup_status = EXCLUDED.lookup_status,
			wikipedia_url = EXCLUDED.wikipedia_url,
			wikipedia_summary = EXCLUDED.wikipedia_summary`

	_, err := s.db.ExecContext(ctx, q,
		info.Beneficiary, info.Normalized, info.SearchTerm, info.Status, info.URL, info.Summary)
	if err != nil {
		return fmt.Errorf("upsert beneficiary info: %w", err)
	}
	return nil
}

// HasBeneficiaryInfo reports whether the crawler already processed the
// beneficiary, so reruns can skip it.
func (s *Store) HasBeneficiaryInfo(ctx context.Context, beneficiary string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM beneficiari_info WHERE beneficiario = $1)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, beneficiary).Scan(&exists); err != nil {
		return false, fmt.Errorf("has beneficiary info: %w", err)
	}
	return exists, nil
}
