package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osservatorio/internal/vector"
)

const sampleCSV = `NumeroMandato,Anno,CIG,Beneficiario,ImportoEuro,DescrizioneMandato,NomeFileOrigine
101,2023,Z1A,AGESP S.P.A.,1234.56 €,Manutenzione verde pubblico,pagamenti_2023.csv
102,2023,,ROSSI MARIO,-,Rimborso spese,pagamenti_2023.csv
`

func TestReadPayments(t *testing.T) {
	payments, err := ReadPayments(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, payments, 2)

	assert.Equal(t, "101", payments[0].NumeroMandato)
	assert.Equal(t, "AGESP S.P.A.", payments[0].Beneficiario)
	assert.Equal(t, "1234.56 €", payments[0].ImportoEuro)
	assert.Equal(t, "", payments[1].CIG)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1234.56", 1234.56, true},
		{"1234.56 €", 1234.56, true},
		{" € 10 ", 10, true},
		{"-", 0, false},
		{"", 0, false},
		{"1.234,56", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestSplitWordsShortTextIsOneChunk(t *testing.T) {
	chunks := SplitWords("uno due tre", 250, 40)
	require.Len(t, chunks, 1)
	assert.Equal(t, "uno due tre", chunks[0])
}

func TestSplitWordsOverlap(t *testing.T) {
	words := make([]string, 12)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	chunks := SplitWords(strings.Join(words, " "), 5, 2)

	// step is 3, so windows start at 0, 3, 6, 9.
	require.Len(t, chunks, 4)
	assert.Equal(t, "w0 w1 w2 w3 w4", chunks[0])
	assert.Equal(t, "w3 w4 w5 w6 w7", chunks[1])
	assert.Equal(t, "w9 w10 w11", chunks[3])
}

func TestSplitWordsEmpty(t *testing.T) {
	assert.Nil(t, SplitWords("   ", 250, 40))
}

func TestDocumentText(t *testing.T) {
	p := Payment{Anno: "2023", Beneficiario: "AGESP S.P.A.", DescrizioneMandato: "Manutenzione   verde\npubblico"}
	assert.Equal(t, "Anno: 2023. Beneficiario: AGESP S.P.A. Descrizione: Manutenzione verde pubblico", DocumentText(p))
}

func TestChunkPaymentMetadata(t *testing.T) {
	p := Payment{
		NumeroMandato:      "101",
		Anno:               "2023",
		Beneficiario:       "AGESP S.P.A.",
		ImportoEuro:        "1234.56 €",
		DescrizioneMandato: "Manutenzione verde pubblico",
		NomeFileOrigine:    "pagamenti_2023.csv",
	}
	points := ChunkPayment(p, 7, 250, 40)
	require.Len(t, points, 1)

	point := points[0]
	assert.Equal(t, "7", point.Metadata["original_index"])
	assert.Equal(t, "0", point.Metadata["chunk_index"])
	assert.Equal(t, "AGESP S.P.A.", point.Metadata["beneficiario"])
	assert.Equal(t, "1234.56 €", point.Metadata["importo_str"])
	assert.Equal(t, 1234.56, point.Metadata["importo_float"])

	// Same position, same ID: re-indexing must overwrite, not duplicate.
	again := ChunkPayment(p, 7, 250, 40)
	assert.Equal(t, point.ID, again[0].ID)
	other := ChunkPayment(p, 8, 250, 40)
	assert.NotEqual(t, point.ID, other[0].ID)
}

func TestChunkPaymentUnparsableAmountOmitsFloat(t *testing.T) {
	p := Payment{Anno: "2023", Beneficiario: "X", ImportoEuro: "-", DescrizioneMandato: "d"}
	points := ChunkPayment(p, 0, 250, 40)
	require.Len(t, points, 1)
	_, hasFloat := points[0].Metadata["importo_float"]
	assert.False(t, hasFloat)
}

type fakeEmbedder struct {
	failOnBatch int
	calls       int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls == f.failOnBatch {
		return nil, errors.New("quota exceeded")
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type fakeIndex struct {
	ensured  bool
	upserted [][]vector.Point
}

func (f *fakeIndex) EnsureCollection(context.Context, uint64) error {
	f.ensured = true
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, points []vector.Point) error {
	f.upserted = append(f.upserted, points)
	return nil
}

func (f *fakeIndex) Count(context.Context) (uint64, error) {
	var n uint64
	for _, batch := range f.upserted {
		n += uint64(len(batch))
	}
	return n, nil
}

func somePayments(n int) []Payment {
	out := make([]Payment, n)
	for i := range out {
		out[i] = Payment{
			Anno:               "2023",
			Beneficiario:       fmt.Sprintf("DITTA %d SRL", i),
			ImportoEuro:        "10.00",
			DescrizioneMandato: "fornitura materiale",
		}
	}
	return out
}

func TestIndexerRun(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	ix := NewIndexer(embedder, index, 768, 2, 250, 40)

	stats, err := ix.Run(context.Background(), somePayments(5))
	require.NoError(t, err)

	assert.True(t, index.ensured)
	assert.Equal(t, 5, stats.Payments)
	assert.Equal(t, 5, stats.Chunks)
	assert.Equal(t, 0, stats.FailedPayments)
	assert.Equal(t, uint64(5), stats.IndexedPoints)
	assert.Equal(t, 3, embedder.calls)
}

func TestIndexerSkipsFailedBatch(t *testing.T) {
	embedder := &fakeEmbedder{failOnBatch: 2}
	index := &fakeIndex{}
	ix := NewIndexer(embedder, index, 768, 2, 250, 40)

	stats, err := ix.Run(context.Background(), somePayments(5))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FailedPayments)
	assert.Equal(t, 3, stats.Chunks)
	assert.Len(t, index.upserted, 2)
}
