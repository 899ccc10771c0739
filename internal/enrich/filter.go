// Package enrich crawls Wikipedia for background summaries of payment
// beneficiaries and persists them so the answer pipeline can ground its
// prompts with them.
package enrich

import (
	"regexp"
	"strings"
)

// orgKeywords mark names that look like companies or institutions, which
// are always worth searching even when they resemble personal names.
var orgKeywords = map[string]struct{}{}

func init() {
	for _, kw := range []string{
		"spa", "srl", "snc", "sas", "societa", "cooperativa", "onlus",
		"associazione", "assne", "asd", "aps", "odv", "ets",
		"comune", "regione", "provincia", "ministero", "agenzia", "ente",
		"asst", "ats", "aler", "inps", "inail", "aci", "enel", "tim", "poste",
		"istituto", "fondazione", "consorzio", "cral", "scuola", "liceo", "universita",
		"parrocchia", "diocesi", "consultorio", "camerale", "banca", "credito",
		"sindacato", "confederazione", "federazione", "cgil", "cisl", "uil",
		"unione", "lega", "club", "gruppo", "comitato", "centro", "azienda",
		"servizi", "system", "group", "editore", "editrice", "grafica", "grafiche",
		"holding", "assicurazioni", "brico", "market", "energy", "pharma",
		"architetti", "ingegneri", "geometra", "commercialisti",
		"fabbrica", "industria", "tipografia", "legatoria", "carrozzeria", "autofficina",
		"farmacia", "ortopedia", "laboratorio", "clinica", "ospedale",
	} {
		orgKeywords[kw] = struct{}{}
	}
}

// genericTerms are bookkeeping labels, not real counterparties.
var genericTerms = map[string]struct{}{
	"diversi":             {},
	"dipendenti comunali": {},
	"dipendneti comunali": {},
	"economo comunale":    {},
	"erario stato":        {},
	"diversi ufficio":     {},
}

// personNameRe matches "Cognome, Nome" shapes, with optional quotes and
// trailing record markers.
var personNameRe = regexp.MustCompile(`^\s*"?[\wÀ-ÿ\s'’-]+,\s*[\wÀ-ÿ\s'’-]+(?:[*\s-]+.*)?"?\s*$`)

// titleWordRe matches a single title-case word like "Mario". All-caps
// words fail on purpose: the ledger writes companies in caps.
var titleWordRe = regexp.MustCompile(`^[A-ZÀ-Þ][a-zà-ÿ'’-]+$`)

// looksLikePrivatePerson reports whether a name has the shape of a
// person written "Nome Cognome": two or three title-case words.
func looksLikePrivatePerson(originalName string) bool {
	words := strings.Fields(strings.TrimSpace(originalName))
	if len(words) != 2 && len(words) != 3 {
		return false
	}
	for _, w := range words {
		if !titleWordRe.MatchString(w) {
			return false
		}
	}
	return true
}

// ShouldSkip reports whether a beneficiary is not worth a Wikipedia
// lookup: generic ledger labels, private persons and redacted or
// residual records. Names carrying an organizational keyword are always
// searched.
func ShouldSkip(originalName, normalizedName string) bool {
	if _, ok := genericTerms[normalizedName]; ok {
		return true
	}
	if personNameRe.MatchString(originalName) {
		return true
	}
	if strings.Contains(originalName, "***") ||
		strings.Contains(normalizedName, "vedi cod") ||
		strings.Contains(normalizedName, "estinto dal") {
		return true
	}
	if strings.HasPrefix(normalizedName, "condominio") {
		return true
	}
	// An organizational keyword overrides the person-shape check below:
	// "Banca Intesa" is title-case but still an institution.
	for _, word := range strings.Fields(normalizedName) {
		if _, ok := orgKeywords[word]; ok {
			return false
		}
	}
	return looksLikePrivatePerson(originalName)
}
