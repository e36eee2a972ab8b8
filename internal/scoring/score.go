// Package scoring rates leads on a 0-100 scale and buckets them into tiers.
package scoring

import (
	"strings"

	"github.com/jonathan/marketing-hub/internal/types"
)

// Criterion describes one scoring category.
type Criterion struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxPoints   int    `json:"max_points"`
}

// Criteria lists the categories in the order they are summed.
var Criteria = []Criterion{
	{ID: "contact_info", Name: "Contact Information Completeness", Description: "Email, phone, and contact person availability", MaxPoints: maxContact},
	{ID: "company_size", Name: "Company Size Match", Description: "Alignment with target customer profile", MaxPoints: 30},
	{ID: "service_alignment", Name: "Service Alignment", Description: "Match with our service offerings", MaxPoints: 35},
	{ID: "region_priority", Name: "Regional Priority", Description: "Priority based on target markets", MaxPoints: 20},
	{ID: "engagement_potential", Name: "Engagement Potential", Description: "Website quality and digital presence", MaxPoints: maxEngagement},
}

const (
	maxContact    = 25
	maxEngagement = 15
	maxScore      = 100
)

var sizePoints = map[types.CompanySize]int{
	types.CompanySizeEnterprise: 30,
	types.CompanySizeMedium:     25,
	types.CompanySizeSmall:      15,
}

var servicePoints = map[types.Service]int{
	types.ServiceWebsiteDevelopment:    35,
	types.ServicePerformanceMarketing:  30,
	types.ServiceSocialMediaManagement: 25,
}

var regionPoints = map[types.Region]int{
	types.RegionUAE:       20,
	types.RegionAustralia: 18,
	types.RegionUS:        15,
	types.RegionIndia:     12,
}

// Breakdown holds the per-category contributions to a lead's score.
type Breakdown struct {
	Contact    int `json:"contact_info"`
	Size       int `json:"company_size"`
	Service    int `json:"service_alignment"`
	Region     int `json:"region_priority"`
	Engagement int `json:"engagement_potential"`
	Total      int `json:"total"`
}

// Score returns the lead's score in [0,100].
func Score(lead *types.Lead) int {
	return Explain(lead).Total
}

// Explain evaluates every category and returns the capped contributions.
func Explain(lead *types.Lead) Breakdown {
	b := Breakdown{
		Contact:    contactScore(lead),
		Size:       sizePoints[lead.CompanySize],
		Service:    servicePoints[lead.Service],
		Region:     regionPoints[lead.Region],
		Engagement: engagementScore(lead),
	}
	sum := b.Contact + b.Size + b.Service + b.Region + b.Engagement
	b.Total = min(max(sum, 0), maxScore)
	return b
}

func contactScore(lead *types.Lead) int {
	var s int
	switch {
	case lead.Email != "" && lead.Phone != "":
		s = 25
	case lead.Email != "":
		s = 20
	case lead.Phone != "":
		s = 15
	}
	if lead.ContactPerson != "" && lead.ContactPerson != types.PlaceholderContact {
		s += 5
	}
	return min(s, maxContact)
}

func engagementScore(lead *types.Lead) int {
	var s int
	if lead.Website != "" {
		s += 15
	}
	if lead.HasTag(types.TagSocialMediaPresence) {
		s += 10
	}
	if strings.Contains(lead.Source, "Recent") {
		s += 5
	}
	return min(s, maxEngagement)
}

// Update is a stored score that no longer matches the computed one.
type Update struct {
	LeadID   string `json:"lead_id"`
	OldScore int    `json:"old_score"`
	NewScore int    `json:"new_score"`
}

// Rescore returns an Update for every lead whose LeadScore is stale, in input order.
func Rescore(leads []*types.Lead) []Update {
	var updates []Update
	for _, l := range leads {
		if s := Score(l); s != l.LeadScore {
			updates = append(updates, Update{LeadID: l.ID, OldScore: l.LeadScore, NewScore: s})
		}
	}
	return updates
}
