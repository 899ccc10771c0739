// Package prompt renders the grounding prompt for the generative model
// and the fixed fallback used when no evidence of any kind exists. The
// rendering is deterministic: same inputs, same prompt, byte for byte.
package prompt

import (
	"fmt"
	"strings"

	"osservatorio/internal/domain"
)

// DefaultDashboardLink points at the public spending dashboard named in
// the fallback and no-answer sentences.
const DefaultDashboardLink = "https://lookerstudio.google.com/u/0/reporting/13b653b0-06e4-44fa-9d33-b4f05a13ecef/page/hRYIF"

// Builder assembles prompts. DashboardLink is baked into the fixed
// sentences so the model can emit it verbatim.
type Builder struct {
	DashboardLink string
}

func NewBuilder(dashboardLink string) *Builder {
	if dashboardLink == "" {
		dashboardLink = DefaultDashboardLink
	}
	return &Builder{DashboardLink: dashboardLink}
}

// NoAnswerSentence is the exact sentence the model must emit when the
// evidence holds no direct answer.
func (b *Builder) NoAnswerSentence() string {
	return fmt.Sprintf("Le informazioni recuperate dai pagamenti non contengono una risposta diretta a questa domanda specifica. Puoi provare a esplorare i dati più nel dettaglio qui: %s", b.DashboardLink)
}

// Build renders the prompt for one question. With no evidence and no
// enrichment it returns the fixed fallback template; otherwise the
// grounding prompt, sections in fixed order: enrichment, evidence,
// question, behavioral rules.
func (b *Builder) Build(question string, evidence []domain.EvidenceChunk, enrichment string) string {
	if len(evidence) == 0 && enrichment == "" {
		return b.fallback(question)
	}

	var sb strings.Builder
	sb.WriteString("Sei un assistente AI specializzato nell'analisi dei dati di spesa (pagamenti) del Comune di Busto Arsizio.\n")
	sb.WriteString("Il tuo compito è rispondere alla domanda dell'utente basandoti PRIMARIAMENTE sulle informazioni presenti nel \"Contesto recuperato dai pagamenti\" e nelle \"Informazioni aggiuntive sul beneficiario\" (se presenti) qui sotto. Non usare conoscenze esterne se non specificamente richiesto.\n")

	if enrichment != "" {
		sb.WriteString("\n**Informazioni aggiuntive sul beneficiario:**\n---\n")
		sb.WriteString(enrichment)
		sb.WriteString("\n---\n")
	}

	sb.WriteString("\n**Contesto recuperato dai pagamenti:**\n---\n")
	sb.WriteString(b.evidenceSection(evidence))
	sb.WriteString("\n---\n")

	sb.WriteString("\n**Domanda Utente:** ")
	sb.WriteString(question)
	sb.WriteString("\n")

	sb.WriteString(b.rules())
	sb.WriteString("\n**Risposta (basata esclusivamente sul contesto fornito):**")
	return sb.String()
}

// evidenceSection renders one block per chunk, in the order the index
// returned them.
func (b *Builder) evidenceSection(evidence []domain.EvidenceChunk) string {
	if len(evidence) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(evidence))
	for _, chunk := range evidence {
		blocks = append(blocks, fmt.Sprintf(
			"Info Pagamento (Anno: %s, Beneficiario: %s, Importo: %s) Descrizione: %s",
			chunk.Year(), chunk.Beneficiary(), chunk.AmountText(), chunk.Document,
		))
	}
	return strings.Join(blocks, "\n---\n")
}

func (b *Builder) rules() string {
	return fmt.Sprintf(`
**Istruzioni:**
1. Leggi attentamente la "Domanda Utente".
2. Trova le informazioni rilevanti principalmente nel "Contesto recuperato dai pagamenti" e nelle "Informazioni aggiuntive".
3. Formula una risposta concisa e precisa usando SOLO le informazioni trovate. Dai priorità ai dettagli specifici dei pagamenti, ma integra con le informazioni aggiuntive se aiutano a contestualizzare il beneficiario.
4. FORMATTAZIONE IMPORTI MONETARI:
   - Usa la virgola (,) come separatore decimale.
   - Usa il punto (.) come separatore delle migliaia.
   - Posiziona il simbolo "€" dopo il numero con uno spazio (es. 1.234,56 €).
   - Includi sempre due cifre decimali (es. 10,00 €, 305,00 €).
5. Non usare MAI la formattazione Markdown (come **grassetto** o *corsivo*) per gli importi monetari.
6. Se il contesto fornito non contiene informazioni sufficienti per rispondere direttamente alla domanda:
   a. Se la domanda è una richiesta di informazioni generali su un ente menzionato (es. "Chi è [Ente]?", "Cosa fa [Ente]?"), PUOI usare la tua conoscenza generale per fornire una breve descrizione dell'ente, specificando chiaramente che si tratta di informazioni generali non derivate dai dati di pagamento analizzati.
   b. Altrimenti, rispondi ESATTAMENTE con: "%s"
7. Sii fedele ai dati forniti quando disponibili. Dai priorità alle informazioni specifiche dei pagamenti.
`, b.NoAnswerSentence())
}

func (b *Builder) fallback(question string) string {
	return fmt.Sprintf(`Sei un assistente AI specializzato sui dati di spesa del Comune di Busto Arsizio.
Le informazioni recuperate dai pagamenti analizzati non contengono una risposta diretta alla seguente domanda.
Domanda: %s
Suggerimento: Puoi provare a esplorare i dati in modo più dettagliato utilizzando il cruscotto pubblico disponibile qui: %s`, question, b.DashboardLink)
}
