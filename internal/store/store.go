// Package store is the read-only relational access layer over the
// payments table and the beneficiary-info side table. All pipeline
// queries are parameterized and never mutate schema; the enrichment
// job's writes live in enrichment.go.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"osservatorio/internal/domain"
)

// undefined_table: beneficiari_info does not exist until the enricher
// has run against the database at least once.
const undefinedTableCode = "42P01"

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

type Store struct {
	db *sql.DB
}

// NewPostgres opens and pings a Postgres connection through the pgx
// stdlib driver.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// TotalSpend sums payments to one beneficiary in one year, matching the
// beneficiary case-insensitively. It returns nil (no data) when no row
// matched: a zero sum would be ambiguous with "did not run".
func (s *Store) TotalSpend(ctx context.Context, beneficiary string, year int) (*domain.TotalSpend, error) {
	const q = `SELECT COALESCE(SUM(importo_euro), 0), COUNT(*)
		FROM pagamenti
		WHERE UPPER(beneficiario) = UPPER($1) AND anno = $2`

	var total float64
	var records int
	if err := s.db.QueryRowContext(ctx, q, beneficiary, year).Scan(&total, &records); err != nil {
		return nil, fmt.Errorf("total spend query: %w", err)
	}
	if records == 0 {
		return nil, nil
	}
	return &domain.TotalSpend{Beneficiary: beneficiary, Year: year, Total: total, Records: records}, nil
}

// TopSuppliers ranks beneficiaries of one year by summed amount,
// descending, excluding non-positive totals and capped at limit. An
// empty year yields an empty slice, not an error.
func (s *Store) TopSuppliers(ctx context.Context, year, limit int) ([]domain.SupplierTotal, error) {
	const q = `SELECT beneficiario, SUM(importo_euro) AS totale
		FROM pagamenti
		WHERE anno = $1
		GROUP BY beneficiario
		HAVING SUM(importo_euro) > 0
		ORDER BY totale DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, year, limit)
	if err != nil {
		return nil, fmt.Errorf("top suppliers query: %w", err)
	}
	defer rows.Close()

	out := []domain.SupplierTotal{}
	for rows.Next() {
		var st domain.SupplierTotal
		if err := rows.Scan(&st.Beneficiary, &st.Total); err != nil {
			return nil, fmt.Errorf("top suppliers scan: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top suppliers rows: %w", err)
	}
	return out, nil
}

// PaymentCount counts payments to one beneficiary in one year. A count
// of zero is a valid result and still returns a record; nil comes back
// only on a storage failure.
func (s *Store) PaymentCount(ctx context.Context, beneficiary string, year int) (*domain.PaymentCount, error) {
	const q = `SELECT COUNT(*) FROM pagamenti
		WHERE UPPER(beneficiario) = UPPER($1) AND anno = $2`

	var count int
	if err := s.db.QueryRowContext(ctx, q, beneficiary, year).Scan(&count); err != nil {
		return nil, fmt.Errorf("payment count query: %w", err)
	}
	return &domain.PaymentCount{Beneficiary: beneficiary, Year: year, Count: count}, nil
}

// LoadNameIndex reads the whole beneficiary registry as normalized-name
// to canonical-name pairs for the in-memory resolver index. A database
// the enricher has not populated yet yields an empty index, not an
// error, so the API can start on a fresh install.
func (s *Store) LoadNameIndex(ctx context.Context) (map[string]string, error) {
	const q = `SELECT nome_normalizzato, beneficiario FROM beneficiari_info
		WHERE nome_normalizzato <> ''`

	rows, err := s.db.QueryContext(ctx, q)
	if isUndefinedTable(err) {
		log.Printf("beneficiari_info does not exist yet, starting with an empty name index")
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("name index query: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var normalized, canonical string
		if err := rows.Scan(&normalized, &canonical); err != nil {
			return nil, fmt.Errorf("name index scan: %w", err)
		}
		if _, dup := entries[normalized]; !dup {
			entries[normalized] = canonical
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("name index rows: %w", err)
	}
	return entries, nil
}

// EnrichmentSummary looks up the cached biographical summary for a
// normalized beneficiary name. Only rows whose lookup succeeded surface
// a summary; every other status reads as "no enrichment available".
func (s *Store) EnrichmentSummary(ctx context.Context, normalizedName string) (string, bool, error) {
	const q = `SELECT wikipedia_summary FROM beneficiari_info
		WHERE nome_normalizzato = $1 AND lookup_status = 'found'
		LIMIT 1`

	var summary sql.NullString
	err := s.db.QueryRowContext(ctx, q, normalizedName).Scan(&summary)
	if err == sql.ErrNoRows || isUndefinedTable(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("enrichment lookup: %w", err)
	}
	if !summary.Valid || summary.String == "" {
		return "", false, nil
	}
	return summary.String, true, nil
}
