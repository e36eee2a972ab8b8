package scoring

import (
	"cmp"
	"slices"

	"github.com/jonathan/marketing-hub/internal/types"
)

// Tier is a coarse priority bucket derived from a score.
type Tier string

// Tiers
const (
	TierHot  Tier = "Hot"
	TierWarm Tier = "Warm"
	TierCold Tier = "Cold"
	TierLow  Tier = "Low"
)

// Tiers lists every tier from highest to lowest.
var Tiers = []Tier{TierHot, TierWarm, TierCold, TierLow}

// TierFor maps a score to its tier. Lower bounds are inclusive.
func TierFor(score int) Tier {
	switch {
	case score >= 80:
		return TierHot
	case score >= 60:
		return TierWarm
	case score >= 40:
		return TierCold
	default:
		return TierLow
	}
}

// Description is the outreach recommendation for the tier.
func (t Tier) Description() string {
	switch t {
	case TierHot:
		return "High priority, immediate outreach recommended"
	case TierWarm:
		return "Good potential, schedule follow-up"
	case TierCold:
		return "Moderate potential, nurture over time"
	default:
		return "Low priority, automated nurturing only"
	}
}

// Segments partitions leads by tier.
type Segments struct {
	Hot  []*types.Lead `json:"hot"`
	Warm []*types.Lead `json:"warm"`
	Cold []*types.Lead `json:"cold"`
	Low  []*types.Lead `json:"low"`
}

// Counts returns the number of leads per tier.
func (s Segments) Counts() map[Tier]int {
	return map[Tier]int{
		TierHot:  len(s.Hot),
		TierWarm: len(s.Warm),
		TierCold: len(s.Cold),
		TierLow:  len(s.Low),
	}
}

// Segment buckets leads by their computed score, preserving input order within a tier.
func Segment(leads []*types.Lead) Segments {
	s := Segments{
		Hot:  []*types.Lead{},
		Warm: []*types.Lead{},
		Cold: []*types.Lead{},
		Low:  []*types.Lead{},
	}
	for _, l := range leads {
		switch TierFor(Score(l)) {
		case TierHot:
			s.Hot = append(s.Hot, l)
		case TierWarm:
			s.Warm = append(s.Warm, l)
		case TierCold:
			s.Cold = append(s.Cold, l)
		default:
			s.Low = append(s.Low, l)
		}
	}
	return s
}

// Scored pairs a lead with its evaluation.
type Scored struct {
	Lead      *types.Lead `json:"lead"`
	Score     int         `json:"score"`
	Tier      Tier        `json:"tier"`
	Breakdown Breakdown   `json:"breakdown"`
}

// Rank scores every lead and sorts them best first. Ties keep input order.
func Rank(leads []*types.Lead) []Scored {
	out := make([]Scored, 0, len(leads))
	for _, l := range leads {
		b := Explain(l)
		out = append(out, Scored{Lead: l, Score: b.Total, Tier: TierFor(b.Total), Breakdown: b})
	}
	slices.SortStableFunc(out, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}
