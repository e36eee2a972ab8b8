package dedupe

import (
	"strings"

	"github.com/jonathan/marketing-hub/internal/types"
)

// MatchType names the strongest signal that justified pairing two leads.
type MatchType string

// Match types
const (
	MatchExact  MatchType = "exact"
	MatchFuzzy  MatchType = "fuzzy"
	MatchDomain MatchType = "domain"
	MatchPhone  MatchType = "phone"
	MatchEmail  MatchType = "email"
)

// Valid reports whether m is a known match type.
func (m MatchType) Valid() bool {
	switch m {
	case MatchExact, MatchFuzzy, MatchDomain, MatchPhone, MatchEmail:
		return true
	}
	return false
}

// Signal weights
const (
	pointsExactName      = 40
	pointsFuzzyName      = 30
	pointsEmailDomain    = 25
	pointsIdenticalEmail = 35
	pointsPhone          = 30
	pointsWebsiteDomain  = 35
	pointsRegionService  = 10
	pointsContactPerson  = 15

	fuzzyNameThreshold   = 0.8
	contactNameThreshold = 0.7
	maxConfidence        = 100
)

// Match reasons, in the order signals are evaluated.
const (
	ReasonIdenticalName    = "Identical company name"
	ReasonSimilarName      = "Similar company name"
	ReasonEmailDomain      = "Same email domain"
	ReasonIdenticalEmail   = "Identical email address"
	ReasonPhone            = "Same phone number"
	ReasonWebsiteDomain    = "Same website domain"
	ReasonRegionAndService = "Same region and service"
	ReasonContactPerson    = "Similar contact person"
)

// Match is the outcome of comparing two leads.
type Match struct {
	Confidence int       `json:"confidence"`
	MatchType  MatchType `json:"match_type"`
	Reasons    []string  `json:"reasons"`
}

// ScorePair compares two leads and returns an additive confidence in [0,100].
//
// Match type precedence: exact is never overwritten; email overrides fuzzy and
// domain; domain applies unless exact; phone applies unless exact or email.
// Signals on fields that are empty on either side do not fire.
func ScorePair(a, b *types.Lead) Match {
	m := Match{MatchType: MatchFuzzy, Reasons: []string{}}

	if a.CompanyName != "" && b.CompanyName != "" {
		if strings.EqualFold(a.CompanyName, b.CompanyName) {
			m.add(pointsExactName, ReasonIdenticalName)
			m.MatchType = MatchExact
		} else if Similarity(a.CompanyName, b.CompanyName) > fuzzyNameThreshold {
			m.add(pointsFuzzyName, ReasonSimilarName)
			m.MatchType = MatchFuzzy
		}
	}

	if a.Email != "" && b.Email != "" {
		if da := EmailDomain(a.Email); da != "" && da == EmailDomain(b.Email) {
			m.add(pointsEmailDomain, ReasonEmailDomain)
			if m.MatchType != MatchExact {
				m.MatchType = MatchDomain
			}
		}
		if strings.EqualFold(a.Email, b.Email) {
			m.add(pointsIdenticalEmail, ReasonIdenticalEmail)
			if m.MatchType != MatchExact {
				m.MatchType = MatchEmail
			}
		}
	}

	if a.Phone != "" && b.Phone != "" && NormalizePhone(a.Phone) == NormalizePhone(b.Phone) {
		m.add(pointsPhone, ReasonPhone)
		if m.MatchType != MatchExact && m.MatchType != MatchEmail {
			m.MatchType = MatchPhone
		}
	}

	if a.Website != "" && b.Website != "" && ExtractDomain(a.Website) == ExtractDomain(b.Website) {
		m.add(pointsWebsiteDomain, ReasonWebsiteDomain)
	}

	if a.Region != "" && a.Service != "" && a.Region == b.Region && a.Service == b.Service {
		m.add(pointsRegionService, ReasonRegionAndService)
	}

	if a.ContactPerson != "" && b.ContactPerson != "" &&
		Similarity(a.ContactPerson, b.ContactPerson) > contactNameThreshold {
		m.add(pointsContactPerson, ReasonContactPerson)
	}

	m.Confidence = min(max(m.Confidence, 0), maxConfidence)
	return m
}

func (m *Match) add(points int, reason string) {
	m.Confidence += points
	m.Reasons = append(m.Reasons, reason)
}
