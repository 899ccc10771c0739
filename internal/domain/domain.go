// Package domain holds the shared types of the question-answering
// pipeline: classified intents, retrieval evidence, aggregation results
// and the boundary response payload.
package domain

// IntentKind identifies which retrieval strategy a question runs.
type IntentKind string

const (
	IntentTotalSpend   IntentKind = "sql_total_spend_beneficiary_year"
	IntentTopSuppliers IntentKind = "sql_top_suppliers_year"
	IntentPaymentCount IntentKind = "sql_payment_count_beneficiary_year"
	IntentSemantic     IntentKind = "rag"
)

// Intent is the classified form of a question. Beneficiary, Year and
// Limit are populated only for the variants that carry them.
type Intent struct {
	Kind        IntentKind
	Beneficiary string
	Year        int
	Limit       int
}

// EvidenceChunk is one semantic-search hit. Distance is the index's
// native metric (lower is closer); it is ordinal, never absolute.
// Chunks keep the order the index returned them in.
type EvidenceChunk struct {
	ID       string
	Distance float64
	Metadata map[string]any
	Document string
}

// Year returns the chunk's year metadata, or "N/A" when absent.
func (c EvidenceChunk) Year() string { return metaString(c.Metadata, "anno") }

// Beneficiary returns the chunk's beneficiary metadata, or "N/A" when absent.
func (c EvidenceChunk) Beneficiary() string { return metaString(c.Metadata, "beneficiario") }

// AmountText returns the chunk's amount-as-text metadata, or "N/A" when absent.
func (c EvidenceChunk) AmountText() string { return metaString(c.Metadata, "importo_str") }

func metaString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "N/A"
}

// TotalSpend is the exact sum of payments to one beneficiary in one year.
// A nil *TotalSpend means "no data", which is distinct from a zero sum.
type TotalSpend struct {
	Beneficiary string
	Year        int
	Total       float64
	Records     int
}

// SupplierTotal is one row of a top-suppliers ranking.
type SupplierTotal struct {
	Beneficiary string
	Total       float64
}

// PaymentCount is the number of payments to one beneficiary in one year.
// Count zero is a valid answer, not a missing one.
type PaymentCount struct {
	Beneficiary string
	Year        int
	Count       int
}
