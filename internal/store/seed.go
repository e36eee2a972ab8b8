package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jonathan/marketing-hub/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

const day = 24 * time.Hour

// Fixture is the on-disk layout of seed data.
type Fixture struct {
	Templates []seedTemplate `yaml:"templates"`
	Campaigns []seedCampaign `yaml:"campaigns"`
	Leads     []seedLead     `yaml:"leads"`
}

type seedLead struct {
	types.Lead     `yaml:",inline"`
	CreatedDaysAgo int `yaml:"created_days_ago"`
	UpdatedDaysAgo int `yaml:"updated_days_ago"`
}

type seedCampaign struct {
	types.Campaign `yaml:",inline"`
	StartInDays    *int `yaml:"start_in_days"`
	EndInDays      *int `yaml:"end_in_days"`
	CreatedDaysAgo int  `yaml:"created_days_ago"`
	UpdatedDaysAgo int  `yaml:"updated_days_ago"`
}

type seedTemplate struct {
	types.EmailTemplate `yaml:",inline"`
}

// ParseFixture decodes YAML seed data.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &f, nil
}

// DefaultFixture returns the embedded demo data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultSeed)
}

// Seed loads the fixture into s. Relative ages are resolved against now.
// Template variables are filled in by extract when a template does not list them.
func Seed(ctx context.Context, s Store, f *Fixture, now time.Time, extract func(string) []string) error {
	for _, st := range f.Templates {
		t := st.EmailTemplate
		t.CreatedAt = now
		if len(t.Variables) == 0 && extract != nil {
			t.Variables = extract(t.Subject + "\n" + t.Content)
		}
		if t.Type == "" {
			t.Type = "custom"
		}
		if err := s.CreateTemplate(ctx, &t); err != nil {
			return fmt.Errorf("failed to seed template %s: %w", t.ID, err)
		}
	}

	for _, sc := range f.Campaigns {
		c := sc.Campaign
		c.CreatedAt = now.Add(-time.Duration(sc.CreatedDaysAgo) * day)
		c.UpdatedAt = now.Add(-time.Duration(sc.UpdatedDaysAgo) * day)
		if sc.StartInDays != nil || sc.EndInDays != nil {
			if c.Schedule == nil {
				c.Schedule = &types.Schedule{}
			}
			if sc.StartInDays != nil {
				c.Schedule.StartDate = now.Add(time.Duration(*sc.StartInDays) * day).Format(time.RFC3339)
			}
			if sc.EndInDays != nil {
				c.Schedule.EndDate = now.Add(time.Duration(*sc.EndInDays) * day).Format(time.RFC3339)
			}
		}
		if err := s.CreateCampaign(ctx, &c); err != nil {
			return fmt.Errorf("failed to seed campaign %s: %w", c.ID, err)
		}
	}

	for _, sl := range f.Leads {
		l := sl.Lead
		l.CreatedAt = now.Add(-time.Duration(sl.CreatedDaysAgo) * day)
		l.UpdatedAt = now.Add(-time.Duration(sl.UpdatedDaysAgo) * day)
		if l.Status == "" {
			l.Status = types.LeadStatusNew
		}
		if err := s.CreateLead(ctx, &l); err != nil {
			return fmt.Errorf("failed to seed lead %s: %w", l.ID, err)
		}
	}
	return nil
}
