package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"osservatorio/internal/vector"
)

const (
	// DefaultChunkSizeWords and DefaultChunkOverlapWords are the word
	// window used when the configuration does not override them.
	DefaultChunkSizeWords    = 250
	DefaultChunkOverlapWords = 40

	// descriptionMetaLimit bounds the description copy stored in chunk
	// metadata; the full text lives in the document itself.
	descriptionMetaLimit = 500
)

// DocumentText renders the text that gets embedded for one payment,
// collapsing runs of whitespace.
func DocumentText(p Payment) string {
	text := fmt.Sprintf("Anno: %s. Beneficiario: %s. Descrizione: %s", p.Anno, p.Beneficiario, p.DescrizioneMandato)
	return strings.Join(strings.Fields(text), " ")
}

// SplitWords divides text into word windows of chunkSize words with
// chunkOverlap words shared between consecutive windows. Text at or
// under the window size comes back as a single chunk.
func SplitWords(text string, chunkSize, chunkOverlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	words := strings.Fields(text)
	if len(words) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - chunkOverlap
	if step < 1 {
		step = 1
	}
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// ChunkPayment turns one payment into index-ready points. recordIndex
// is the payment's position in the source CSV; it seeds the point IDs,
// so re-running the indexer on the same file overwrites instead of
// duplicating.
func ChunkPayment(p Payment, recordIndex, chunkSize, chunkOverlap int) []vector.Point {
	text := DocumentText(p)
	chunks := SplitWords(text, chunkSize, chunkOverlap)

	points := make([]vector.Point, 0, len(chunks))
	for chunkIndex, chunkText := range chunks {
		metadata := map[string]any{
			"original_index": strconv.Itoa(recordIndex),
			"chunk_index":    strconv.Itoa(chunkIndex),
			"anno":           p.Anno,
			"numero_mandato": p.NumeroMandato,
			"beneficiario":   p.Beneficiario,
			"importo_str":    p.ImportoEuro,
			"descrizione":    truncateMeta(p.DescrizioneMandato),
			"file_origine":   p.NomeFileOrigine,
		}
		if amount, ok := ParseAmount(p.ImportoEuro); ok {
			metadata["importo_float"] = amount
		}
		points = append(points, vector.Point{
			ID:       chunkID(recordIndex, chunkIndex),
			Document: chunkText,
			Metadata: metadata,
		})
	}
	return points
}

// chunkID derives a stable UUID from the payment and chunk position.
func chunkID(recordIndex, chunkIndex int) string {
	name := fmt.Sprintf("pag_%d_chunk_%d", recordIndex, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func truncateMeta(s string) string {
	runes := []rune(s)
	if len(runes) <= descriptionMetaLimit {
		return s
	}
	return string(runes[:descriptionMetaLimit])
}
