// Package scorer matches observed service spend against credit offers.
package scorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"credit-coupling-api/internal/catalog"
	"credit-coupling-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Options tunes matching behavior.
type Options struct {
	// ExclusiveMatching lets an observed service satisfy at most one requirement
	// per offer. Off by default: two requirements may match the same service.
	ExclusiveMatching bool
}

// Scorer scores spend against a validated catalog. It holds no mutable state.
type Scorer struct {
	catalog *catalog.Catalog
	opts    Options
}

// New creates a scorer over an already validated catalog.
func New(cat *catalog.Catalog, opts Options) *Scorer {
	return &Scorer{catalog: cat, opts: opts}
}

// Score returns one result per offer, in catalog order.
func (s *Scorer) Score(spend models.ServiceSpend) []models.EligibilityResult {
	return scoreOffers(s.catalog.Offers(), spend, s.opts)
}

// Score validates offers and scores spend against them. A malformed offer fails
// the call before any offer is scored.
func Score(spend models.ServiceSpend, offers []models.CreditOffer) ([]models.EligibilityResult, error) {
	cat, err := catalog.New(offers)
	if err != nil {
		return nil, err
	}
	return New(cat, Options{}).Score(spend), nil
}

func scoreOffers(offers []models.CreditOffer, spend models.ServiceSpend, opts Options) []models.EligibilityResult {
	services := observedServices(spend)
	results := make([]models.EligibilityResult, 0, len(offers))
	for _, offer := range offers {
		results = append(results, ScoreOffer(offer, spend, services, opts))
	}
	return results
}

// observedServices returns the spend keys in a stable order so that
// "first matching service" does not depend on map iteration.
func observedServices(spend models.ServiceSpend) []string {
	names := make([]string, 0, len(spend))
	for name := range spend {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScoreOffer scores a single offer. services must be the sorted keys of spend.
func ScoreOffer(offer models.CreditOffer, spend models.ServiceSpend, services []string, opts Options) models.EligibilityResult {
	m := matcher{spend: spend, services: services, exclusive: opts.ExclusiveMatching}

	matchedPrimary, missingPrimary := m.match(offer.PrimaryServices)
	matchedSupporting, missingSupporting := m.match(offer.SupportingServices)

	var status models.Status
	switch {
	case len(matchedPrimary) > 0 && m.total.GreaterThanOrEqual(offer.MinimumSpend):
		status = models.StatusQualified
	case len(matchedPrimary) > 0:
		status = models.StatusPartiallyQualified
	default:
		status = models.StatusOpportunity
	}

	return models.EligibilityResult{
		OfferID:            offer.ID,
		OfferName:          offer.Name,
		DiscountPercent:    offer.DiscountPercent,
		Status:             status,
		MatchedPrimary:     matchedPrimary,
		MatchedSupporting:  matchedSupporting,
		MissingPrimary:     missingPrimary,
		MissingSupporting:  missingSupporting,
		TotalMatchedSpend:  m.total,
		MinimumSpend:       offer.MinimumSpend,
		PotentialSavings:   m.total.Mul(offer.DiscountPercent).Div(hundred),
		RecommendationText: recommendation(offer, status, missingPrimary, m.total),
	}
}

type matcher struct {
	spend     models.ServiceSpend
	services  []string
	exclusive bool
	used      map[string]bool
	total     decimal.Decimal
}

// match walks requirements in order; each takes the first observed service
// whose name contains it, case-insensitively.
func (m *matcher) match(requirements []string) ([]models.ServiceMatch, []string) {
	matched := []models.ServiceMatch{}
	missing := []string{}

	for _, req := range requirements {
		name, ok := m.find(req)
		if !ok {
			missing = append(missing, req)
			continue
		}
		amount := m.spend[name]
		matched = append(matched, models.ServiceMatch{Service: name, Spend: amount})
		m.total = m.total.Add(amount)
	}

	return matched, missing
}

func (m *matcher) find(requirement string) (string, bool) {
	needle := strings.ToLower(requirement)
	for _, name := range m.services {
		if m.exclusive && m.used[name] {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			if m.exclusive {
				if m.used == nil {
					m.used = make(map[string]bool)
				}
				m.used[name] = true
			}
			return name, true
		}
	}
	return "", false
}

func recommendation(offer models.CreditOffer, status models.Status, missingPrimary []string, total decimal.Decimal) string {
	switch status {
	case models.StatusQualified:
		return fmt.Sprintf("You qualify for %s! Ensure attestation includes all coupled services.", offer.Name)
	case models.StatusPartiallyQualified:
		shortfall := offer.MinimumSpend.Sub(total)
		return fmt.Sprintf("Add $%s more spend to qualify for %s. Consider expanding existing services.",
			shortfall.StringFixed(2), offer.Name)
	default:
		if len(missingPrimary) > 0 {
			return fmt.Sprintf("Add %s to unlock %s.", missingPrimary[0], offer.Name)
		}
		return fmt.Sprintf("Consider %s for %s%% savings on coupled services.", offer.Name, offer.DiscountPercent)
	}
}
