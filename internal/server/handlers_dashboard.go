package server

import (
	"net/http"

	"github.com/jonathan/marketing-hub/internal/scoring"
	"github.com/jonathan/marketing-hub/internal/types"
	"golang.org/x/sync/errgroup"
)

// recentCampaignLimit bounds the campaigns listed on the dashboard.
const recentCampaignLimit = 5

// DashboardSummary is the overview shown on the landing page.
type DashboardSummary struct {
	Leads           *types.LeadStats     `json:"leads"`
	Tiers           map[scoring.Tier]int `json:"tiers"`
	TotalCampaigns  int                  `json:"total_campaigns"`
	ActiveCampaigns int                  `json:"active_campaigns"`
	RecentCampaigns []*types.Campaign    `json:"recent_campaigns"`
}

// handleDashboard handles GET /api/dashboard. The three store reads run concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var (
		summary   DashboardSummary
		campaigns []*types.Campaign
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		stats, err := s.store.LeadStats(ctx)
		summary.Leads = stats
		return err
	})
	g.Go(func() error {
		leads, err := s.store.AllLeads(ctx)
		if err != nil {
			return err
		}
		summary.Tiers = scoring.Segment(leads).Counts()
		return nil
	})
	g.Go(func() error {
		var err error
		campaigns, err = s.store.ListCampaigns(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, err, "Failed to load dashboard")
		return
	}

	summary.TotalCampaigns = len(campaigns)
	for _, c := range campaigns {
		if c.Status == types.CampaignStatusActive {
			summary.ActiveCampaigns++
		}
	}
	summary.RecentCampaigns = campaigns[:min(len(campaigns), recentCampaignLimit)]

	jsonResponse(w, http.StatusOK, summary)
}
