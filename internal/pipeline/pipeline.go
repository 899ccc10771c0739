// Package pipeline routes a user question through intent
// classification, SQL aggregation or semantic retrieval, enrichment,
// prompt assembly and answer generation, and assembles the single
// response payload every transport serializes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"osservatorio/internal/domain"
	"osservatorio/internal/llm"
	"osservatorio/internal/normalize"
	"osservatorio/internal/prompt"
	"osservatorio/internal/vector"
)

// DefaultResults is the number of chunks retrieved for the semantic
// path when the configuration does not override it.
const DefaultResults = 7

// previewRunes is how much of a chunk document reference previews carry.
const previewRunes = 150

// StatusFunc receives user-facing progress messages while a question is
// being answered. Transports forward them as stream events.
type StatusFunc func(message string)

// Classifier decides which retrieval strategy a question runs. A
// non-empty reason means a structured intent was degraded to the
// semantic one.
type Classifier interface {
	Classify(question string) (domain.Intent, domain.FallbackReason)
}

// Aggregator answers the structured intents with exact SQL aggregates.
type Aggregator interface {
	TotalSpend(ctx context.Context, beneficiary string, year int) (*domain.TotalSpend, error)
	TopSuppliers(ctx context.Context, year, limit int) ([]domain.SupplierTotal, error)
	PaymentCount(ctx context.Context, beneficiary string, year int) (*domain.PaymentCount, error)
}

// Embedder turns the question into a query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the k nearest payment chunks for a query vector.
type Searcher interface {
	Query(ctx context.Context, embedding []float32, k int) ([]domain.EvidenceChunk, error)
}

// Enricher looks up the cached biographical summary for a normalized
// beneficiary name.
type Enricher interface {
	EnrichmentSummary(ctx context.Context, normalizedName string) (string, bool, error)
}

// Generator runs the generative model on an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) llm.GenResult
}

// Cache stores successful payloads keyed by the asked question. Put
// reports whether the payload was accepted.
type Cache interface {
	Get(question string) (*domain.ResponsePayload, bool)
	Put(question string, payload *domain.ResponsePayload) bool
}

// Deps bundles everything the pipeline needs. All fields except Prompts
// and Results are required.
type Deps struct {
	Classifier Classifier
	Aggregator Aggregator
	Embedder   Embedder
	Searcher   Searcher
	Enricher   Enricher
	Generator  Generator
	Cache      Cache
	Prompts    *prompt.Builder
	Results    int
}

type Pipeline struct {
	deps Deps
}

func New(deps Deps) *Pipeline {
	if deps.Results <= 0 {
		deps.Results = DefaultResults
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewBuilder("")
	}
	return &Pipeline{deps: deps}
}

// Ask answers one question. It never returns an error: every failure is
// encoded in the payload with a typed error code, so transports always
// have something well formed to serialize.
func (p *Pipeline) Ask(ctx context.Context, question string, status StatusFunc) *domain.ResponsePayload {
	if status == nil {
		status = func(string) {}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		payload := domain.NewResponsePayload()
		payload.SetError(domain.ErrCodeEmptyQuery, "La domanda è vuota.")
		return payload
	}

	if cached, ok := p.deps.Cache.Get(question); ok {
		log.Printf("pipeline: cache hit for %q", normalize.CacheKey(question))
		status("Risposta recuperata dalla cache.")
		return cached
	}

	status("Analisi della domanda in corso...")
	intent, reason := p.deps.Classifier.Classify(question)

	var payload *domain.ResponsePayload
	switch intent.Kind {
	case domain.IntentTotalSpend:
		var fallback bool
		payload, fallback = p.answerTotalSpend(ctx, intent, status)
		if fallback {
			reason = domain.FallbackNoAggregationData
			log.Printf("pipeline: semantic fallback engaged (reason=%s)", reason)
			status("Nessun totale trovato. Avvio la ricerca generica...")
			payload = p.answerSemantic(ctx, question, status)
		}
	case domain.IntentTopSuppliers:
		payload = p.answerTopSuppliers(ctx, intent, status)
	case domain.IntentPaymentCount:
		payload = p.answerPaymentCount(ctx, intent, status)
	default:
		if reason != domain.FallbackNone {
			log.Printf("pipeline: semantic fallback engaged (reason=%s)", reason)
		}
		payload = p.answerSemantic(ctx, question, status)
	}

	if p.deps.Cache.Put(question, payload) {
		log.Printf("pipeline: cached response for %q", normalize.CacheKey(question))
	}
	status("Completato.")
	return payload
}

// answerTotalSpend reports fallback=true when the aggregation found no
// rows; the question then re-runs through the semantic path. A database
// error does not fall back, it surfaces as a typed failure.
func (p *Pipeline) answerTotalSpend(ctx context.Context, intent domain.Intent, status StatusFunc) (*domain.ResponsePayload, bool) {
	payload := domain.NewResponsePayload()
	status(fmt.Sprintf("Eseguo la query per la spesa totale ('%s' - %d)...", intent.Beneficiary, intent.Year))

	res, err := p.deps.Aggregator.TotalSpend(ctx, intent.Beneficiary, intent.Year)
	if err != nil {
		log.Printf("pipeline: total spend query failed for %q year %d: %v", intent.Beneficiary, intent.Year, err)
		payload.SetError(domain.ErrCodeSQLExecution, "Errore del database durante il calcolo della spesa totale.")
		return payload, false
	}
	if res == nil {
		return nil, true
	}

	payload.SetAnswer(fmt.Sprintf(
		"Nel %d, la spesa totale registrata per '%s' ammonta a %s, basata su %d pagamenti.",
		res.Year, res.Beneficiary, prompt.FormatEuro(res.Total), res.Records,
	))
	payload.TableData = []map[string]any{{
		"Anno":           res.Year,
		"Beneficiario":   res.Beneficiary,
		"Importo Totale": res.Total,
		"N. Record":      res.Records,
	}}
	return payload, false
}

func (p *Pipeline) answerTopSuppliers(ctx context.Context, intent domain.Intent, status StatusFunc) *domain.ResponsePayload {
	payload := domain.NewResponsePayload()
	status(fmt.Sprintf("Eseguo la query per i primi %d fornitori (%d)...", intent.Limit, intent.Year))

	rows, err := p.deps.Aggregator.TopSuppliers(ctx, intent.Year, intent.Limit)
	if err != nil {
		log.Printf("pipeline: top suppliers query failed for year %d: %v", intent.Year, err)
		payload.SetError(domain.ErrCodeSQLExecution, "Errore del database durante la ricerca dei fornitori principali.")
		return payload
	}
	if len(rows) == 0 {
		payload.SetAnswer(fmt.Sprintf("Non ho trovato fornitori con pagamenti registrati per l'anno %d.", intent.Year))
		return payload
	}

	payload.SetAnswer(fmt.Sprintf(
		"Ecco i principali %d fornitori registrati nel %d in base agli importi totali:",
		len(rows), intent.Year,
	))
	table := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		table = append(table, map[string]any{
			"Pos.":           i + 1,
			"Fornitore":      row.Beneficiary,
			"Importo Totale": row.Total,
		})
	}
	payload.TableData = table
	return payload
}

// answerPaymentCount never falls back: zero payments is a real answer,
// unlike a missing total.
func (p *Pipeline) answerPaymentCount(ctx context.Context, intent domain.Intent, status StatusFunc) *domain.ResponsePayload {
	payload := domain.NewResponsePayload()
	status(fmt.Sprintf("Eseguo la query per il conteggio pagamenti ('%s' - %d)...", intent.Beneficiary, intent.Year))

	res, err := p.deps.Aggregator.PaymentCount(ctx, intent.Beneficiary, intent.Year)
	if err != nil || res == nil {
		log.Printf("pipeline: payment count query failed for %q year %d: %v", intent.Beneficiary, intent.Year, err)
		payload.SetError(domain.ErrCodeSQLExecution, "Errore del database durante il conteggio dei pagamenti.")
		return payload
	}

	if res.Count > 0 {
		payload.SetAnswer(fmt.Sprintf("Nel %d, risultano registrati %d pagamenti per '%s'.", res.Year, res.Count, res.Beneficiary))
	} else {
		payload.SetAnswer(fmt.Sprintf("Nel %d, non risultano pagamenti registrati per '%s'.", res.Year, res.Beneficiary))
	}
	payload.TableData = []map[string]any{{
		"Anno":             res.Year,
		"Beneficiario":     res.Beneficiary,
		"Numero Pagamenti": res.Count,
	}}
	return payload
}

func (p *Pipeline) answerSemantic(ctx context.Context, question string, status StatusFunc) *domain.ResponsePayload {
	payload := domain.NewResponsePayload()

	status("Calcolo della rappresentazione semantica...")
	embedding, err := p.deps.Embedder.EmbedQuery(ctx, question)
	if err != nil {
		log.Printf("pipeline: query embedding failed: %v", err)
		payload.SetError(domain.ErrCodeEmbeddingFailed, "Errore durante l'analisi semantica della domanda.")
		return payload
	}

	status("Ricerca dei documenti più pertinenti...")
	chunks, err := p.deps.Searcher.Query(ctx, embedding, p.deps.Results)
	if err != nil {
		log.Printf("pipeline: vector search failed: %v", err)
		if errors.Is(err, vector.ErrCollectionNotFound) {
			payload.SetError(domain.ErrCodeCollectionMissing, "La base di conoscenza dei pagamenti non è disponibile.")
		} else {
			payload.SetError(domain.ErrCodeVectorQueryFailed, fmt.Sprintf("Errore durante la ricerca nei dati dei pagamenti: %v", err))
		}
		return payload
	}

	// References are fixed as soon as retrieval succeeds. Later
	// generation failures, including safety blocks, keep them.
	payload.References = referencesFor(chunks)

	if len(chunks) == 0 {
		payload.SetAnswer(fmt.Sprintf(
			"Non ho trovato informazioni specifiche nei pagamenti per rispondere a questa domanda. Puoi consultare il <a href='%s' target='_blank'>cruscotto</a>.",
			p.deps.Prompts.DashboardLink,
		))
		return payload
	}

	enrichment := p.lookupEnrichment(ctx, chunks, status)

	status("Invio delle informazioni all'intelligenza artificiale...")
	promptText := p.deps.Prompts.Build(question, chunks, enrichment)

	status("In attesa della risposta dell'AI...")
	result := p.deps.Generator.Generate(ctx, promptText)
	switch result.Status {
	case llm.StatusOK:
		payload.SetAnswer(result.Answer)
	case llm.StatusBlocked:
		log.Printf("pipeline: generation blocked (%s)", result.BlockReason)
		payload.SetError(domain.ErrCodeGenerationBlocked, fmt.Sprintf("Risposta bloccata dal modello (%s).", result.BlockReason))
	case llm.StatusUnreadable:
		log.Printf("pipeline: generation returned no readable text")
		payload.SetError(domain.ErrCodeResponseUnread, "Il modello ha restituito una risposta non leggibile.")
	case llm.StatusRateLimited:
		log.Printf("pipeline: generation rate limited: %v", result.Err)
		payload.SetError(domain.ErrCodeRateLimited, "Limite di richieste verso il modello raggiunto. Riprova tra qualche istante.")
	case llm.StatusAPIError:
		log.Printf("pipeline: generation API error: %v", result.Err)
		payload.SetError(domain.ErrCodeAPIError, "Errore dell'API del modello generativo.")
	default:
		log.Printf("pipeline: generation failed: %v", result.Err)
		payload.SetError(domain.ErrCodeGenerationFailed, "Errore imprevisto durante la generazione della risposta.")
	}
	return payload
}

// lookupEnrichment tries the top chunk's beneficiary against the
// enrichment table. Any failure here only loses context, never the
// answer, so errors are logged and swallowed.
func (p *Pipeline) lookupEnrichment(ctx context.Context, chunks []domain.EvidenceChunk, status StatusFunc) string {
	beneficiary := chunks[0].Beneficiary()
	if beneficiary == "N/A" {
		return ""
	}
	normalized := normalize.Name(beneficiary)
	if normalized == "" {
		return ""
	}

	status(fmt.Sprintf("Recupero informazioni aggiuntive su '%s'...", beneficiary))
	summary, found, err := p.deps.Enricher.EnrichmentSummary(ctx, normalized)
	if err != nil {
		log.Printf("pipeline: enrichment lookup failed for %q: %v", normalized, err)
		return ""
	}
	if !found {
		return ""
	}
	return summary
}

// referencesFor flattens chunks into the wire reference shape: the
// chunk metadata plus its distance and a short document preview.
func referencesFor(chunks []domain.EvidenceChunk) []map[string]any {
	refs := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		ref := make(map[string]any, len(chunk.Metadata)+2)
		for k, v := range chunk.Metadata {
			ref[k] = v
		}
		ref["distance"] = chunk.Distance
		ref["retrieved_doc_text_preview"] = preview(chunk.Document)
		refs = append(refs, ref)
	}
	return refs
}

func preview(doc string) string {
	runes := []rune(doc)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes) + "..."
}
