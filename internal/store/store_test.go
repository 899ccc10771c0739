package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn serves canned result sets keyed by a substring of the SQL
// text, so tests exercise the real database/sql scan path without a
// running Postgres.
type stubConn struct {
	results map[string]stubResult
	queries []string
	args    [][]driver.NamedValue
}

type stubResult struct {
	columns []string
	rows    [][]driver.Value
	err     error
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare unsupported") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("tx unsupported") }

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)
	for key, res := range c.results {
		if strings.Contains(query, key) {
			if res.err != nil {
				return nil, res.err
			}
			return &stubRows{columns: res.columns, rows: res.rows}, nil
		}
	}
	return nil, errors.New("unexpected query: " + query)
}

type stubRows struct {
	columns []string
	rows    [][]driver.Value
	next    int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

type stubConnector struct{ conn *stubConn }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

func newStubStore(results map[string]stubResult) (*Store, *stubConn) {
	conn := &stubConn{results: results}
	return &Store{db: sql.OpenDB(stubConnector{conn: conn})}, conn
}

func TestTotalSpendNoMatchingRowsIsNil(t *testing.T) {
	s, _ := newStubStore(map[string]stubResult{
		"COALESCE(SUM": {
			columns: []string{"total", "records"},
			rows:    [][]driver.Value{{float64(0), int64(0)}},
		},
	})

	res, err := s.TotalSpend(context.Background(), "Sconosciuto SRL", 2023)
	require.NoError(t, err)
	assert.Nil(t, res, "zero matched records must read as no data, not a zero total")
}

func TestTotalSpendReturnsSumAndCount(t *testing.T) {
	s, conn := newStubStore(map[string]stubResult{
		"COALESCE(SUM": {
			columns: []string{"total", "records"},
			rows:    [][]driver.Value{{float64(1234.56), int64(3)}},
		},
	})

	res, err := s.TotalSpend(context.Background(), "AGESP", 2023)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "AGESP", res.Beneficiary)
	assert.Equal(t, 2023, res.Year)
	assert.Equal(t, 1234.56, res.Total)
	assert.Equal(t, 3, res.Records)

	require.Len(t, conn.args, 1)
	assert.Equal(t, "AGESP", conn.args[0][0].Value)
	assert.Equal(t, int64(2023), conn.args[0][1].Value)
}

func TestTopSuppliersQueryRanksAndFilters(t *testing.T) {
	s, conn := newStubStore(map[string]stubResult{
		"GROUP BY beneficiario": {
			columns: []string{"beneficiario", "totale"},
			rows: [][]driver.Value{
				{"AGESP SPA", float64(150000)},
				{"Maggioli", float64(90000)},
			},
		},
	})

	out, err := s.TopSuppliers(context.Background(), 2023, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "AGESP SPA", out[0].Beneficiary)
	assert.Equal(t, float64(150000), out[0].Total)
	assert.Equal(t, "Maggioli", out[1].Beneficiary)

	require.Len(t, conn.queries, 1)
	q := conn.queries[0]
	assert.Contains(t, q, "HAVING SUM(importo_euro) > 0", "non-positive totals must be filtered in SQL")
	assert.Contains(t, q, "ORDER BY totale DESC", "ranking must be by summed amount, descending")
	assert.Contains(t, q, "LIMIT $2")
	assert.Equal(t, int64(2), conn.args[0][1].Value)
}

func TestTopSuppliersEmptyYearIsEmptySlice(t *testing.T) {
	s, _ := newStubStore(map[string]stubResult{
		"GROUP BY beneficiario": {
			columns: []string{"beneficiario", "totale"},
			rows:    [][]driver.Value{},
		},
	})

	out, err := s.TopSuppliers(context.Background(), 1999, 5)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestPaymentCountZeroStillReturnsRecord(t *testing.T) {
	s, _ := newStubStore(map[string]stubResult{
		"SELECT COUNT(*)": {
			columns: []string{"count"},
			rows:    [][]driver.Value{{int64(0)}},
		},
	})

	res, err := s.PaymentCount(context.Background(), "AGESP", 2020)
	require.NoError(t, err)
	require.NotNil(t, res, "a zero count is a valid answer, not missing data")
	assert.Equal(t, 0, res.Count)
}

func TestLoadNameIndexMissingTableDegradesToEmpty(t *testing.T) {
	s, _ := newStubStore(map[string]stubResult{
		"FROM beneficiari_info": {
			err: &pgconn.PgError{Code: "42P01", Message: `relation "beneficiari_info" does not exist`},
		},
	})

	idx, err := s.LoadNameIndex(context.Background())
	require.NoError(t, err, "a fresh database without the enrichment table must not block startup")
	require.NotNil(t, idx)
	assert.Empty(t, idx)
}

func TestLoadNameIndexKeepsFirstDuplicate(t *testing.T) {
	s, _ := newStubStore(map[string]stubResult{
		"FROM beneficiari_info": {
			columns: []string{"nome_normalizzato", "beneficiario"},
			rows: [][]driver.Value{
				{"agesp", "AGESP SPA"},
				{"agesp", "AGESP S.P.A."},
				{"maggioli", "Maggioli S.p.A."},
			},
		},
	})

	idx, err := s.LoadNameIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"agesp": "AGESP SPA", "maggioli": "Maggioli S.p.A."}, idx)
}

func TestEnrichmentSummaryMissingTableReadsAsAbsent(t *testing.T) {
	s, _ := newStubStore(map[string]stubResult{
		"wikipedia_summary": {
			err: &pgconn.PgError{Code: "42P01", Message: `relation "beneficiari_info" does not exist`},
		},
	})

	summary, ok, err := s.EnrichmentSummary(context.Background(), "agesp")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, summary)
}
