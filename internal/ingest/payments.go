// Package ingest reads the processed payments CSV, splits each payment
// into word-window chunks and prepares them for embedding and vector
// indexing.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Payment is one row of the processed payments CSV. Every field stays a
// string at this stage; the amount is parsed separately where a numeric
// value is useful.
type Payment struct {
	NumeroMandato      string
	Anno               string
	CIG                string
	Beneficiario       string
	ImportoEuro        string
	DescrizioneMandato string
	NomeFileOrigine    string
}

// ReadPayments parses the processed CSV. Columns are matched by header
// name, so column order does not matter; unknown columns are ignored.
func ReadPayments(r io.Reader) ([]Payment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var payments []Payment
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		payments = append(payments, Payment{
			NumeroMandato:      field(record, "NumeroMandato"),
			Anno:               field(record, "Anno"),
			CIG:                field(record, "CIG"),
			Beneficiario:       field(record, "Beneficiario"),
			ImportoEuro:        field(record, "ImportoEuro"),
			DescrizioneMandato: field(record, "DescrizioneMandato"),
			NomeFileOrigine:    field(record, "NomeFileOrigine"),
		})
	}
	return payments, nil
}

// ParseAmount converts an amount field to a float. The processed CSV
// uses the dot as decimal separator; only the euro sign and surrounding
// spaces are stripped. Returns false for empty or unparsable values.
func ParseAmount(value string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, "€", ""))
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
