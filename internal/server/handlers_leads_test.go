package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jonathan/marketing-hub/internal/dedupe"
	"github.com/jonathan/marketing-hub/internal/mail"
	"github.com/jonathan/marketing-hub/internal/scoring"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeLead(email string) map[string]any {
	return map[string]any{
		"company_name":   "Acme Corp",
		"contact_person": "John Smith",
		"email":          email,
		"phone":          "+971 50 123 4567",
		"website":        "https://www.acme.com",
		"region":         "UAE",
		"service":        "Website Development",
		"company_size":   "Enterprise",
		"source":         "LinkedIn",
	}
}

func (e *testEnv) createLead(t *testing.T, token string, body map[string]any) *types.Lead {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/leads", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lead := decodeBody[types.Lead](t, w)
	return &lead
}

func TestCreateLead(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")

	lead := env.createLead(t, token, acmeLead("ceo@acme.com"))

	assert.NotEmpty(t, lead.ID)
	assert.NotEmpty(t, lead.OwnerID)
	assert.Equal(t, types.LeadStatusNew, lead.Status)
	assert.Equal(t, 100, lead.LeadScore)
	assert.Equal(t, []string{}, lead.Tags)

	w := env.do(t, http.MethodPost, "/api/leads", token, acmeLead("CEO@acme.com"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "A lead with this email already exists", errorMessage(t, w))
}

func TestCreateLead_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")

	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{"missing company", func(b map[string]any) { delete(b, "company_name") }, "company_name"},
		{"bad email", func(b map[string]any) { b["email"] = "nope" }, "email"},
		{"unknown region", func(b map[string]any) { b["region"] = "Mars" }, "region"},
		{"unknown service", func(b map[string]any) { b["service"] = "Catering" }, "service"},
		{"unknown size", func(b map[string]any) { b["company_size"] = "Huge" }, "company_size"},
		{"short phone", func(b map[string]any) { b["phone"] = "123" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := acmeLead("x@acme.com")
			tt.mutate(body)
			w := env.do(t, http.MethodPost, "/api/leads", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorMessage(t, w), tt.wantField)
		})
	}
}

func TestListLeads(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")

	env.createLead(t, token, acmeLead("a@acme.com"))
	india := acmeLead("b@globex.in")
	india["company_name"] = "Globex India"
	india["region"] = "India"
	india["notes"] = "Met at the Mumbai expo"
	env.createLead(t, token, india)

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantPages int
		wantCount int
	}{
		{"all", "", 2, 1, 2},
		{"region", "?region=India", 1, 1, 1},
		{"region all", "?region=all", 2, 1, 2},
		{"search notes", "?search=mumbai", 1, 1, 1},
		{"no match", "?status=won", 0, 0, 0},
		{"paged", "?limit=1&page=2", 2, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/leads"+tt.query, token, nil)
			require.Equal(t, http.StatusOK, w.Code)
			page := decodeBody[types.LeadPage](t, w)
			assert.Equal(t, tt.wantTotal, page.Pagination.Total)
			assert.Equal(t, tt.wantPages, page.Pagination.Pages)
			assert.Len(t, page.Data, tt.wantCount)
		})
	}

	w := env.do(t, http.MethodGet, "/api/leads?page=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUpdateDeleteLead(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	lead := env.createLead(t, token, acmeLead("a@acme.com"))
	other := acmeLead("b@other.com")
	other["company_name"] = "Other Ltd"
	env.createLead(t, token, other)

	w := env.do(t, http.MethodGet, "/api/leads/"+lead.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme Corp", decodeBody[types.Lead](t, w).CompanyName)

	w = env.do(t, http.MethodPut, "/api/leads/"+lead.ID, token, map[string]any{"company_size": "Startup", "status": "contacted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[types.Lead](t, w)
	assert.Equal(t, types.LeadStatusContacted, updated.Status)
	assert.Equal(t, 95, updated.LeadScore)

	w = env.do(t, http.MethodPut, "/api/leads/"+lead.ID, token, map[string]any{"email": "b@other.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgDuplicateEmail, errorMessage(t, w))

	w = env.do(t, http.MethodPut, "/api/leads/"+lead.ID, token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/leads/"+lead.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/leads/"+lead.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "lead not found: "+lead.ID, errorMessage(t, w))

	w = env.do(t, http.MethodDelete, "/api/leads/"+lead.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkUpdateLeads(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	lead := env.createLead(t, token, acmeLead("a@acme.com"))

	w := env.do(t, http.MethodPut, "/api/leads/bulk/update", token, map[string]any{
		"lead_ids": []string{lead.ID, "missing"},
		"updates":  map[string]any{"status": "qualified"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeBody[types.BulkUpdateResult](t, w)
	assert.False(t, result.Success)
	require.Len(t, result.Data, 1)
	assert.Equal(t, types.LeadStatusQualified, result.Data[0].Status)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "missing", result.Errors[0].LeadID)
	assert.Equal(t, "lead not found: missing", result.Errors[0].Error)
	assert.Equal(t, "1 leads updated successfully, 1 failed", result.Message)

	w = env.do(t, http.MethodPut, "/api/leads/bulk/update", token, map[string]any{"lead_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadStats(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	env.createLead(t, token, acmeLead("a@acme.com"))

	w := env.do(t, http.MethodGet, "/api/leads/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeBody[types.LeadStats](t, w)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[types.LeadStatusNew])
	assert.Equal(t, 1, stats.ByRegion[types.RegionUAE])
	assert.Len(t, stats.RecentActivity, 1)
}

func TestExportLeads(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	body := acmeLead("a@acme.com")
	body["notes"] = `said "call back"`
	env.createLead(t, token, body)

	w := env.do(t, http.MethodGet, "/api/leads/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="leads_export_\d{4}-\d{2}-\d{2}\.csv"`, w.Header().Get("Content-Disposition"))

	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"Name","Email","Company","Phone","Region","Status","Source","Notes","Created At"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"John Smith","a@acme.com","Acme Corp","+971 50 123 4567","UAE","new","LinkedIn","said ""call back""",`))
}

func TestLeadsCSV_Empty(t *testing.T) {
	assert.Equal(t, `"Name","Email","Company","Phone","Region","Status","Source","Notes","Created At"`, leadsCSV(nil))
}

func TestScoresAndSegments(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	env.createLead(t, token, acmeLead("a@acme.com"))
	env.createLead(t, token, map[string]any{
		"company_name": "Tiny Shop",
		"email":        "owner@tiny.shop",
		"region":       "India",
		"company_size": "Startup",
	})

	w := env.do(t, http.MethodGet, "/api/leads/scores", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	scores := decodeBody[struct {
		Criteria     []scoring.Criterion  `json:"criteria"`
		Leads        []scoring.Scored     `json:"leads"`
		Distribution map[scoring.Tier]int `json:"distribution"`
	}](t, w)
	assert.Len(t, scores.Criteria, 5)
	require.Len(t, scores.Leads, 2)
	assert.Equal(t, 100, scores.Leads[0].Score)
	assert.Equal(t, scoring.TierHot, scores.Leads[0].Tier)
	assert.Equal(t, 32, scores.Leads[1].Score)
	assert.Equal(t, 1, scores.Distribution[scoring.TierHot])
	assert.Equal(t, 1, scores.Distribution[scoring.TierLow])

	w = env.do(t, http.MethodGet, "/api/leads/segments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	seg := decodeBody[struct {
		Segments     scoring.Segments        `json:"segments"`
		Counts       map[scoring.Tier]int    `json:"counts"`
		Descriptions map[scoring.Tier]string `json:"descriptions"`
	}](t, w)
	assert.Len(t, seg.Segments.Hot, 1)
	assert.Len(t, seg.Segments.Low, 1)
	assert.Equal(t, 0, seg.Counts[scoring.TierWarm])
	assert.Len(t, seg.Descriptions, 4)
	assert.Equal(t, "High priority, immediate outreach recommended", seg.Descriptions[scoring.TierHot])
}

func TestRescoreLeads(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")

	stale := &types.Lead{
		CompanyName: "Stale Co",
		Email:       "hi@stale.co",
		Region:      types.RegionUS,
		LeadScore:   3,
		Status:      types.LeadStatusNew,
	}
	require.NoError(t, env.store.CreateLead(context.Background(), stale))
	env.createLead(t, token, acmeLead("a@acme.com"))

	w := env.do(t, http.MethodPost, "/api/leads/rescore", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[struct {
		Updated int              `json:"updated"`
		Updates []scoring.Update `json:"updates"`
	}](t, w)
	assert.Equal(t, 1, resp.Updated)
	require.Len(t, resp.Updates, 1)
	assert.Equal(t, scoring.Update{LeadID: stale.ID, OldScore: 3, NewScore: 35}, resp.Updates[0])

	got, err := env.store.GetLead(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, 35, got.LeadScore)

	// a second pass finds nothing stale
	w = env.do(t, http.MethodPost, "/api/leads/rescore", token, nil)
	assert.Equal(t, float64(0), decodeBody[map[string]any](t, w)["updated"])
}

func seedDuplicates(t *testing.T, env *testEnv, token string) (a, b, c *types.Lead) {
	t.Helper()
	a = env.createLead(t, token, acmeLead("a@acme.com"))
	twin := acmeLead("b@acme.com")
	twin["company_name"] = "ACME Corp"
	twin["phone"] = "+1 555 000 1111"
	b = env.createLead(t, token, twin)
	c = env.createLead(t, token, map[string]any{
		"company_name": "Globex",
		"email":        "info@globex.com",
		"region":       "US",
	})
	return a, b, c
}

func TestDuplicates_ScanAndList(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")

	w := env.do(t, http.MethodGet, "/api/leads/duplicates", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[scanResult](t, w).Groups)

	a, b, _ := seedDuplicates(t, env, token)

	w = env.do(t, http.MethodPost, "/api/leads/duplicates/scan", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	scan := decodeBody[scanResult](t, w)
	assert.Equal(t, 3, scan.LeadsScanned)
	require.Len(t, scan.Groups, 1)

	g := scan.Groups[0]
	assert.Equal(t, dedupe.MatchExact, g.MatchType)
	assert.GreaterOrEqual(t, g.Confidence, dedupe.Threshold)
	assert.Contains(t, g.Reasons, dedupe.ReasonIdenticalName)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, []string{g.Leads[0].ID, g.Leads[1].ID})

	w = env.do(t, http.MethodGet, "/api/leads/duplicates?match_type=exact", token, nil)
	assert.Len(t, decodeBody[scanResult](t, w).Groups, 1)

	w = env.do(t, http.MethodGet, "/api/leads/duplicates?match_type=phone", token, nil)
	assert.Empty(t, decodeBody[scanResult](t, w).Groups)

	w = env.do(t, http.MethodGet, "/api/leads/duplicates?match_type=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// scans are kept per user
	otherToken := env.login(t, "other@example.com")
	w = env.do(t, http.MethodGet, "/api/leads/duplicates", otherToken, nil)
	assert.Empty(t, decodeBody[scanResult](t, w).Groups)
}

func TestDuplicates_Merge(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	a, b, c := seedDuplicates(t, env, token)

	w := env.do(t, http.MethodPost, "/api/leads/duplicates/scan", token, nil)
	groupID := decodeBody[scanResult](t, w).Groups[0].ID

	w = env.do(t, http.MethodPost, "/api/leads/duplicates/"+groupID+"/merge", token, map[string]string{"master_lead_id": c.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/leads/duplicates/"+groupID+"/merge", token, map[string]string{"master_lead_id": a.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := decodeBody[dedupe.Group](t, w)
	assert.True(t, merged.Resolved)
	require.NotNil(t, merged.MasterLead)
	assert.Equal(t, a.ID, merged.MasterLead.ID)

	_, err := env.store.GetLead(context.Background(), b.ID)
	assert.Error(t, err, "non-master lead should be deleted")
	_, err = env.store.GetLead(context.Background(), a.ID)
	assert.NoError(t, err)

	w = env.do(t, http.MethodPost, "/api/leads/duplicates/"+groupID+"/merge", token, map[string]string{"master_lead_id": a.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "duplicate group is already resolved", errorMessage(t, w))

	w = env.do(t, http.MethodPost, "/api/leads/duplicates/unknown/merge", token, map[string]string{"master_lead_id": a.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicates_RemoveLead(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "sales@example.com")
	a, b, c := seedDuplicates(t, env, token)

	w := env.do(t, http.MethodPost, "/api/leads/duplicates/scan", token, nil)
	groupID := decodeBody[scanResult](t, w).Groups[0].ID

	w = env.do(t, http.MethodDelete, "/api/leads/duplicates/"+groupID+"/leads/"+c.ID, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/leads/duplicates/"+groupID+"/leads/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody[map[string]any](t, w)["group_discarded"])

	_, err := env.store.GetLead(context.Background(), b.ID)
	assert.Error(t, err)
	_, err = env.store.GetLead(context.Background(), a.ID)
	assert.NoError(t, err)

	w = env.do(t, http.MethodGet, "/api/leads/duplicates", token, nil)
	assert.Empty(t, decodeBody[scanResult](t, w).Groups)
}

// flakyDeleteStore fails DeleteLead while failDeletes is set.
type flakyDeleteStore struct {
	*store.Memory
	failDeletes bool
}

func (f *flakyDeleteStore) DeleteLead(ctx context.Context, id string) error {
	if f.failDeletes {
		return errors.New("connection reset")
	}
	return f.Memory.DeleteLead(ctx, id)
}

func newFlakyDeleteEnv(t *testing.T) (*testEnv, *flakyDeleteStore) {
	t.Helper()
	flaky := &flakyDeleteStore{Memory: store.NewMemory()}
	rec := &mail.Recorder{}
	s, err := New(testConfig(), flaky, rec)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return &testEnv{server: s, store: flaky.Memory, mailer: rec}, flaky
}

func TestDuplicates_MergeRetryableAfterDeleteFailure(t *testing.T) {
	env, flaky := newFlakyDeleteEnv(t)
	token := env.login(t, "sales@example.com")
	a, b, _ := seedDuplicates(t, env, token)

	w := env.do(t, http.MethodPost, "/api/leads/duplicates/scan", token, nil)
	groupID := decodeBody[scanResult](t, w).Groups[0].ID

	flaky.failDeletes = true
	w = env.do(t, http.MethodPost, "/api/leads/duplicates/"+groupID+"/merge", token, map[string]string{"master_lead_id": a.ID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to merge duplicates", errorMessage(t, w))

	w = env.do(t, http.MethodGet, "/api/leads/duplicates", token, nil)
	groups := decodeBody[scanResult](t, w).Groups
	require.Len(t, groups, 1)
	assert.False(t, groups[0].Resolved)
	assert.Nil(t, groups[0].MasterLead)
	assert.Len(t, groups[0].Leads, 2)
	_, err := env.store.GetLead(context.Background(), b.ID)
	assert.NoError(t, err)

	flaky.failDeletes = false
	w = env.do(t, http.MethodPost, "/api/leads/duplicates/"+groupID+"/merge", token, map[string]string{"master_lead_id": a.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeBody[dedupe.Group](t, w).Resolved)
	_, err = env.store.GetLead(context.Background(), b.ID)
	assert.Error(t, err)
}

func TestDuplicates_RemoveRetryableAfterDeleteFailure(t *testing.T) {
	env, flaky := newFlakyDeleteEnv(t)
	token := env.login(t, "sales@example.com")
	_, b, _ := seedDuplicates(t, env, token)

	w := env.do(t, http.MethodPost, "/api/leads/duplicates/scan", token, nil)
	groupID := decodeBody[scanResult](t, w).Groups[0].ID

	flaky.failDeletes = true
	w = env.do(t, http.MethodDelete, "/api/leads/duplicates/"+groupID+"/leads/"+b.ID, token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = env.do(t, http.MethodGet, "/api/leads/duplicates", token, nil)
	groups := decodeBody[scanResult](t, w).Groups
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Leads, 2)

	flaky.failDeletes = false
	w = env.do(t, http.MethodDelete, "/api/leads/duplicates/"+groupID+"/leads/"+b.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody[map[string]any](t, w)["group_discarded"])
}
