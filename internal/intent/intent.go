// Package intent classifies a natural-language question into one of the
// structured aggregation intents or the semantic-search intent.
//
// Classification is an ordered pattern table: rules are evaluated top to
// bottom and the first match wins, because the patterns are not mutually
// exclusive by construction. Anything unmatched is semantic search.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"osservatorio/internal/domain"
)

// DefaultTopSuppliers is the ranking size used when the question does
// not name one.
const DefaultTopSuppliers = 5

// Resolver maps a free-text beneficiary phrase to its canonical
// registry form. The boolean reports whether a registry entry actually
// matched; when it did not, a structured intent that needs the
// beneficiary degrades to semantic search instead of running a doomed
// aggregation.
type Resolver interface {
	Resolve(name string) (string, bool)
}

type rule struct {
	re    *regexp.Regexp
	build func(c *Classifier, m []string) (domain.Intent, bool)
}

// Classifier holds the pattern table. Safe for concurrent use.
type Classifier struct {
	resolver Resolver
	rules    []rule
}

var (
	totalSpendRe   = regexp.MustCompile(`quanto(?:\s+si\s+(?:è|e'))?\s+speso\s+(?:per|a)\s+(.+?)\s+nel\s+(\d{4})\??$`)
	topSuppliersRe = regexp.MustCompile(`^\s*(?:chi sono i|quali sono i|top|principali)\s+(?:beneficiari|fornitori)(?:\s+nel)?\s+(\d{4})\??\s*$`)
	paymentCountRe = regexp.MustCompile(`(?:quanti|numero)\s+pagamenti\s+(?:ha\s+)?(?:ricevuto|per)\s+(.+?)\s+(?:nel|nell'anno)\s+(\d{4})\??$`)
)

// New builds a classifier backed by the given beneficiary resolver.
func New(resolver Resolver) *Classifier {
	c := &Classifier{resolver: resolver}
	c.rules = []rule{
		{totalSpendRe, buildBeneficiaryYear(domain.IntentTotalSpend)},
		{topSuppliersRe, buildTopSuppliers},
		{paymentCountRe, buildBeneficiaryYear(domain.IntentPaymentCount)},
	}
	return c
}

// Classify matches the question against the pattern table. It returns
// the intent and, when a structured pattern matched but the beneficiary
// could not be resolved, the reason the intent degraded to semantic
// search (FallbackNone otherwise).
func (c *Classifier) Classify(question string) (domain.Intent, domain.FallbackReason) {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, r := range c.rules {
		m := r.re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		if in, ok := r.build(c, m); ok {
			return in, domain.FallbackNone
		}
		return domain.Intent{Kind: domain.IntentSemantic}, domain.FallbackUnresolvedBeneficiary
	}
	return domain.Intent{Kind: domain.IntentSemantic}, domain.FallbackNone
}

func buildBeneficiaryYear(kind domain.IntentKind) func(*Classifier, []string) (domain.Intent, bool) {
	return func(c *Classifier, m []string) (domain.Intent, bool) {
		phrase := strings.TrimSpace(m[1])
		year, _ := strconv.Atoi(m[2])
		canonical, ok := c.resolver.Resolve(phrase)
		if !ok {
			return domain.Intent{}, false
		}
		return domain.Intent{Kind: kind, Beneficiary: canonical, Year: year}, true
	}
}

func buildTopSuppliers(_ *Classifier, m []string) (domain.Intent, bool) {
	year, _ := strconv.Atoi(m[1])
	return domain.Intent{Kind: domain.IntentTopSuppliers, Year: year, Limit: DefaultTopSuppliers}, true
}
