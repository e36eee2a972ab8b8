package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/marketing-hub/internal/dedupe"
	"github.com/jonathan/marketing-hub/internal/scoring"
	"github.com/jonathan/marketing-hub/internal/server/middleware"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/types"
)

// msgDuplicateEmail is returned when a lead email is already in use.
const msgDuplicateEmail = "A lead with this email already exists"

// exportHeader is the column row of a CSV export.
var exportHeader = []string{"Name", "Email", "Company", "Phone", "Region", "Status", "Source", "Notes", "Created At"}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

// parseLeadFilter reads region, status, source, search, page and limit from the query string.
func parseLeadFilter(r *http.Request) (types.LeadFilter, error) {
	q := r.URL.Query()
	f := types.LeadFilter{
		Region: q.Get("region"),
		Status: q.Get("status"),
		Source: q.Get("source"),
		Search: strings.TrimSpace(q.Get("search")),
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &f.Page}, {"limit", &f.Limit}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, &ErrValidation{Field: p.name, Message: "must be a positive integer"}
		}
		*p.dst = n
	}
	return f.Normalize(), nil
}

// leadStoreError translates store sentinels into API errors.
func leadStoreError(err error, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &ErrNotFound{Resource: "lead", ID: id}
	case errors.Is(err, store.ErrDuplicateEmail):
		return &ErrConflict{Message: msgDuplicateEmail}
	}
	return err
}

// handleListLeads handles GET /api/leads.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	f, err := parseLeadFilter(r)
	if err != nil {
		writeError(w, err, "invalid query")
		return
	}
	page, err := s.store.ListLeads(r.Context(), f)
	if err != nil {
		writeError(w, err, "Failed to fetch leads")
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// handleLeadStats handles GET /api/leads/stats.
func (s *Server) handleLeadStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.LeadStats(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch lead statistics")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// handleExportLeads handles GET /api/leads/export. The listing filters apply;
// pagination is replaced by the export row limit.
func (s *Server) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	f, err := parseLeadFilter(r)
	if err != nil {
		writeError(w, err, "invalid query")
		return
	}
	f.Page = types.DefaultPage
	f.Limit = types.ExportLimit

	page, err := s.store.ListLeads(r.Context(), f)
	if err != nil {
		writeError(w, err, "Failed to export leads")
		return
	}

	filename := fmt.Sprintf("leads_export_%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(leadsCSV(page.Data)))
}

// leadsCSV renders leads with every field quoted. encoding/csv only quotes
// fields that need it, so rows are built by hand.
func leadsCSV(leads []*types.Lead) string {
	var sb strings.Builder
	writeRow := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('"')
			sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
			sb.WriteByte('"')
		}
	}

	writeRow(exportHeader)
	for _, l := range leads {
		sb.WriteByte('\n')
		writeRow([]string{
			l.ContactPerson,
			l.Email,
			l.CompanyName,
			l.Phone,
			string(l.Region),
			string(l.Status),
			l.Source,
			l.Notes,
			l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return sb.String()
}

// handleCreateLead handles POST /api/leads.
func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req types.CreateLeadRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	lead := req.ToLead()
	lead.OwnerID = userID.String()
	lead.LeadScore = scoring.Score(lead)

	if err := s.store.CreateLead(r.Context(), lead); err != nil {
		writeError(w, leadStoreError(err, ""), "Failed to create lead")
		return
	}

	log.Printf("[leads] created %s (%s) score=%d", lead.ID, lead.CompanyName, lead.LeadScore)
	jsonResponse(w, http.StatusCreated, lead)
}

// handleGetLead handles GET /api/leads/{id}.
func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		writeError(w, leadStoreError(err, id), "Failed to fetch lead")
		return
	}
	jsonResponse(w, http.StatusOK, lead)
}

// updateLead applies req to the stored lead, re-scores it and saves it.
func (s *Server) updateLead(r *http.Request, id string, req *types.UpdateLeadRequest) (*types.Lead, error) {
	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		return nil, leadStoreError(err, id)
	}
	req.Apply(lead)
	lead.LeadScore = scoring.Score(lead)
	if err := s.store.UpdateLead(r.Context(), lead); err != nil {
		return nil, leadStoreError(err, id)
	}
	return lead, nil
}

// handleUpdateLead handles PUT /api/leads/{id}.
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.UpdateLeadRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}
	if req.Empty() {
		writeError(w, &ErrValidation{Field: "body", Message: "no fields to update"}, "invalid request")
		return
	}

	lead, err := s.updateLead(r, id, &req)
	if err != nil {
		writeError(w, err, "Failed to update lead")
		return
	}
	jsonResponse(w, http.StatusOK, lead)
}

// handleDeleteLead handles DELETE /api/leads/{id}.
func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteLead(r.Context(), id); err != nil {
		writeError(w, leadStoreError(err, id), "Failed to delete lead")
		return
	}
	log.Printf("[leads] deleted %s", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Lead deleted successfully"})
}

// handleBulkUpdateLeads handles PUT /api/leads/bulk/update. Each id is updated
// independently; failures are reported per id and do not stop the batch.
func (s *Server) handleBulkUpdateLeads(w http.ResponseWriter, r *http.Request) {
	var req types.BulkUpdateRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	result := types.BulkUpdateResult{
		Data:   []*types.Lead{},
		Errors: []types.BulkUpdateError{},
	}
	for _, id := range req.LeadIDs {
		lead, err := s.updateLead(r, id, req.Updates)
		if err != nil {
			msg := "update failed"
			if HTTPStatus(err) != http.StatusInternalServerError {
				msg = err.Error()
			} else {
				log.Printf("[leads] bulk update %s: %v", id, err)
			}
			result.Errors = append(result.Errors, types.BulkUpdateError{LeadID: id, Error: msg})
			continue
		}
		result.Data = append(result.Data, lead)
	}

	result.Success = len(result.Errors) == 0
	result.Message = fmt.Sprintf("%d leads updated successfully", len(result.Data))
	if len(result.Errors) > 0 {
		result.Message += fmt.Sprintf(", %d failed", len(result.Errors))
	}
	jsonResponse(w, http.StatusOK, result)
}

// handleLeadScores handles GET /api/leads/scores.
func (s *Server) handleLeadScores(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.AllLeads(r.Context())
	if err != nil {
		writeError(w, err, "Failed to score leads")
		return
	}

	ranked := scoring.Rank(leads)
	distribution := make(map[scoring.Tier]int, len(scoring.Tiers))
	for _, t := range scoring.Tiers {
		distribution[t] = 0
	}
	for _, sc := range ranked {
		distribution[sc.Tier]++
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"criteria":     scoring.Criteria,
		"leads":        ranked,
		"distribution": distribution,
	})
}

// handleRescoreLeads handles POST /api/leads/rescore, persisting every stale score.
func (s *Server) handleRescoreLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.AllLeads(r.Context())
	if err != nil {
		writeError(w, err, "Failed to rescore leads")
		return
	}

	updates := scoring.Rescore(leads)
	byID := make(map[string]*types.Lead, len(leads))
	for _, l := range leads {
		byID[l.ID] = l
	}

	applied := make([]scoring.Update, 0, len(updates))
	for _, u := range updates {
		lead := byID[u.LeadID]
		lead.LeadScore = u.NewScore
		if err := s.store.UpdateLead(r.Context(), lead); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			writeError(w, err, "Failed to rescore leads")
			return
		}
		applied = append(applied, u)
	}

	log.Printf("[leads] rescored %d of %d leads", len(applied), len(leads))
	jsonResponse(w, http.StatusOK, map[string]any{
		"updated": len(applied),
		"updates": applied,
	})
}

// handleLeadSegments handles GET /api/leads/segments.
func (s *Server) handleLeadSegments(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.AllLeads(r.Context())
	if err != nil {
		writeError(w, err, "Failed to segment leads")
		return
	}
	segments := scoring.Segment(leads)
	descriptions := make(map[scoring.Tier]string, len(scoring.Tiers))
	for _, t := range scoring.Tiers {
		descriptions[t] = t.Description()
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"segments":     segments,
		"counts":       segments.Counts(),
		"descriptions": descriptions,
	})
}

// handleScanDuplicates handles POST /api/leads/duplicates/scan.
func (s *Server) handleScanDuplicates(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	leads, err := s.store.AllLeads(r.Context())
	if err != nil {
		writeError(w, err, "Failed to scan for duplicates")
		return
	}

	groups := s.detector.Detect(leads)
	if groups == nil {
		groups = []*dedupe.Group{}
	}
	scan := &scanResult{Groups: groups, LeadsScanned: len(leads), ScannedAt: time.Now().UTC()}
	s.scans.put(userID, scan)

	log.Printf("[dedupe] %d groups found across %d leads", len(groups), len(leads))
	jsonResponse(w, http.StatusOK, s.scans.snapshot(userID, ""))
}

// handleListDuplicates handles GET /api/leads/duplicates. Users who have not
// scanned get an empty result.
func (s *Server) handleListDuplicates(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	matchType := dedupe.MatchType(r.URL.Query().Get("match_type"))
	if matchType == "all" {
		matchType = ""
	}
	if matchType != "" && !matchType.Valid() {
		writeError(w, &ErrValidation{Field: "match_type", Message: "unknown match type"}, "invalid query")
		return
	}

	scan := s.scans.snapshot(userID, matchType)
	if scan == nil {
		scan = &scanResult{Groups: []*dedupe.Group{}}
	}
	jsonResponse(w, http.StatusOK, scan)
}

// mergeRequest names the lead that survives a merge.
type mergeRequest struct {
	MasterLeadID string `json:"master_lead_id" validate:"required"`
}

// groupError translates group resolution failures into API errors.
func groupError(err error, groupID, leadID string) error {
	switch {
	case errors.Is(err, dedupe.ErrGroupResolved):
		return &ErrInvalidState{Message: "duplicate group is already resolved"}
	case errors.Is(err, dedupe.ErrLeadNotInGroup):
		return &ErrValidation{Field: "lead_id", Message: fmt.Sprintf("lead %s is not in group %s", leadID, groupID)}
	}
	return err
}

// handleMergeDuplicates handles POST /api/leads/duplicates/{group_id}/merge.
// Every member other than the master lead is deleted from the store.
func (s *Server) handleMergeDuplicates(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID := r.PathValue("group_id")

	var req mergeRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	var merged dedupe.Group
	err := s.scans.withGroup(userID, groupID, func(g *dedupe.Group) (bool, error) {
		removed, err := g.MergePlan(req.MasterLeadID)
		if err != nil {
			return false, groupError(err, groupID, req.MasterLeadID)
		}
		// The group changes only after every delete succeeds.
		for _, l := range removed {
			if err := s.store.DeleteLead(r.Context(), l.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return false, fmt.Errorf("failed to delete lead %s: %w", l.ID, err)
			}
		}
		if _, err := g.Merge(&types.Lead{ID: req.MasterLeadID}); err != nil {
			return false, groupError(err, groupID, req.MasterLeadID)
		}
		merged = *g
		return false, nil
	})
	if err != nil {
		writeError(w, err, "Failed to merge duplicates")
		return
	}

	log.Printf("[dedupe] merged group %s into %s", groupID, req.MasterLeadID)
	jsonResponse(w, http.StatusOK, merged)
}

// handleRemoveDuplicate handles DELETE /api/leads/duplicates/{group_id}/leads/{lead_id}.
// The lead is deleted from the store and the group is dropped once a single member remains.
func (s *Server) handleRemoveDuplicate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	groupID := r.PathValue("group_id")
	leadID := r.PathValue("lead_id")

	var discarded bool
	err := s.scans.withGroup(userID, groupID, func(g *dedupe.Group) (bool, error) {
		if g.Resolved {
			return false, groupError(dedupe.ErrGroupResolved, groupID, leadID)
		}
		if !g.Contains(leadID) {
			return false, groupError(dedupe.ErrLeadNotInGroup, groupID, leadID)
		}
		if err := s.store.DeleteLead(r.Context(), leadID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("failed to delete lead %s: %w", leadID, err)
		}
		discard, err := g.Remove(leadID)
		if err != nil {
			return false, groupError(err, groupID, leadID)
		}
		discarded = discard
		return discard, nil
	})
	if err != nil {
		writeError(w, err, "Failed to remove duplicate")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message":         "Lead removed from duplicate group",
		"group_discarded": discarded,
	})
}
