package dedupe

import (
	"github.com/google/uuid"
	"github.com/jonathan/marketing-hub/internal/types"
)

// Threshold is the minimum pairwise confidence for two leads to be grouped.
const Threshold = 70

// Group is a set of leads judged likely to represent the same company.
// Leads[0] is the seed lead that claimed the others.
type Group struct {
	ID         string        `json:"id"`
	Leads      []*types.Lead `json:"leads"`
	MatchType  MatchType     `json:"match_type"`
	Confidence int           `json:"confidence"`
	Reasons    []string      `json:"reasons"`
	Resolved   bool          `json:"resolved"`
	MasterLead *types.Lead   `json:"master_lead,omitempty"`
}

// Detector runs the grouping pass. The zero value is not usable; use NewDetector.
type Detector struct {
	newID func() string
	score func(a, b *types.Lead) Match
}

// Option configures a Detector.
type Option func(*Detector)

// WithIDFunc sets the generator used for group ids.
func WithIDFunc(fn func() string) Option {
	return func(d *Detector) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithScorer replaces ScorePair as the pairwise comparison.
func WithScorer(fn func(a, b *types.Lead) Match) Option {
	return func(d *Detector) {
		if fn != nil {
			d.score = fn
		}
	}
}

// NewDetector creates a Detector. Group ids default to "group_<uuid>".
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		newID: func() string { return "group_" + uuid.NewString() },
		score: ScorePair,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect groups leads with the default Detector.
func Detect(leads []*types.Lead) []*Group {
	return NewDetector().Detect(leads)
}

// Detect makes a single greedy pass over leads in input order. Each unclaimed lead
// claims every later unclaimed lead scoring at least Threshold against it; a claimed
// lead cannot seed or join another group. The result is therefore order-dependent
// and not transitive. Leads are not mutated, and lead ids must be unique.
func (d *Detector) Detect(leads []*types.Lead) []*Group {
	processed := make(map[string]bool, len(leads))
	var groups []*Group

	for i, seed := range leads {
		if seed == nil || processed[seed.ID] {
			continue
		}

		var (
			dupes   []*types.Lead
			matches []Match
		)
		for _, candidate := range leads[i+1:] {
			if candidate == nil || processed[candidate.ID] {
				continue
			}
			m := d.score(seed, candidate)
			if m.Confidence >= Threshold {
				dupes = append(dupes, candidate)
				matches = append(matches, m)
				processed[candidate.ID] = true
			}
		}

		if len(dupes) == 0 {
			continue
		}
		processed[seed.ID] = true
		groups = append(groups, d.newGroup(seed, dupes, matches))
	}

	return groups
}

func (d *Detector) newGroup(seed *types.Lead, dupes []*types.Lead, matches []Match) *Group {
	g := &Group{
		ID:        d.newID(),
		Leads:     append([]*types.Lead{seed}, dupes...),
		MatchType: matches[0].MatchType,
		Reasons:   []string{},
	}

	seen := make(map[string]bool)
	for _, m := range matches {
		g.Confidence = max(g.Confidence, m.Confidence)
		for _, r := range m.Reasons {
			if !seen[r] {
				seen[r] = true
				g.Reasons = append(g.Reasons, r)
			}
		}
	}
	return g
}
