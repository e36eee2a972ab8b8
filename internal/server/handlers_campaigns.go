package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/jonathan/marketing-hub/internal/schemas"
	"github.com/jonathan/marketing-hub/internal/store"
	"github.com/jonathan/marketing-hub/internal/templates"
	"github.com/jonathan/marketing-hub/internal/types"
)

// DefaultTemplateType is assigned to templates created without a type.
const DefaultTemplateType = "custom"

func campaignStoreError(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &ErrNotFound{Resource: "campaign", ID: id}
	}
	return err
}

func templateStoreError(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &ErrNotFound{Resource: "template", ID: id}
	}
	return err
}

// validateSettings checks free-form campaign settings against their JSON Schema.
func validateSettings(settings map[string]any) error {
	err := schemas.ValidateCampaignSettings(settings)
	if err == nil {
		return nil
	}
	var ve *schemas.ValidationError
	if errors.As(err, &ve) {
		return &ErrValidation{Field: "settings", Message: ve.Summary()}
	}
	return err
}

// handleListCampaigns handles GET /api/campaigns.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch campaigns")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data":  campaigns,
		"count": len(campaigns),
	})
}

// handleCreateCampaign handles POST /api/campaigns.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req types.CreateCampaignRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}
	if err := validateSettings(req.Settings); err != nil {
		writeError(w, err, "Failed to validate campaign settings")
		return
	}

	campaign := req.ToCampaign()
	campaign.OwnerID = userID.String()
	if err := s.store.CreateCampaign(r.Context(), campaign); err != nil {
		writeError(w, err, "Failed to create campaign")
		return
	}

	log.Printf("[campaigns] created %s (%s)", campaign.ID, campaign.Name)
	jsonResponse(w, http.StatusCreated, campaign)
}

// handleGetCampaign handles GET /api/campaigns/{id}.
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to fetch campaign")
		return
	}
	jsonResponse(w, http.StatusOK, campaign)
}

// handleUpdateCampaign handles PUT /api/campaigns/{id}.
func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.UpdateCampaignRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}
	if err := validateSettings(req.Settings); err != nil {
		writeError(w, err, "Failed to validate campaign settings")
		return
	}

	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to update campaign")
		return
	}
	req.Apply(campaign)
	if err := s.store.UpdateCampaign(r.Context(), campaign); err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to update campaign")
		return
	}
	jsonResponse(w, http.StatusOK, campaign)
}

// handleDeleteCampaign handles DELETE /api/campaigns/{id}.
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteCampaign(r.Context(), id); err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to delete campaign")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Campaign deleted successfully"})
}

// transitionCampaign loads a campaign, applies a lifecycle transition and saves it.
func (s *Server) transitionCampaign(w http.ResponseWriter, r *http.Request, transition func(*types.Campaign) error, action string) {
	id := r.PathValue("id")
	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to "+action+" campaign")
		return
	}
	if err := transition(campaign); err != nil {
		writeError(w, &ErrInvalidState{Message: err.Error()}, "Failed to "+action+" campaign")
		return
	}
	if err := s.store.UpdateCampaign(r.Context(), campaign); err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to "+action+" campaign")
		return
	}

	log.Printf("[campaigns] %s %s -> %s", action, campaign.ID, campaign.Status)
	jsonResponse(w, http.StatusOK, campaign)
}

// handleStartCampaign handles POST /api/campaigns/{id}/start.
func (s *Server) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	s.transitionCampaign(w, r, (*types.Campaign).Start, "start")
}

// handlePauseCampaign handles POST /api/campaigns/{id}/pause.
func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	s.transitionCampaign(w, r, (*types.Campaign).Pause, "pause")
}

// handleCampaignAnalytics handles GET /api/campaigns/{id}/analytics.
func (s *Server) handleCampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to fetch campaign analytics")
		return
	}
	jsonResponse(w, http.StatusOK, campaign.Analytics.Report())
}

// handleCampaignAudience handles GET /api/campaigns/{id}/audience.
func (s *Server) handleCampaignAudience(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	campaign, err := s.store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, campaignStoreError(err, id), "Failed to resolve audience")
		return
	}
	leads, err := s.store.AllLeads(r.Context())
	if err != nil {
		writeError(w, err, "Failed to resolve audience")
		return
	}

	audience := make([]*types.Lead, 0, len(leads))
	for _, l := range leads {
		if campaign.TargetAudience.Matches(l) {
			audience = append(audience, l)
		}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"campaign_id": campaign.ID,
		"total":       len(audience),
		"leads":       audience,
	})
}

// handleListTemplates handles GET /api/campaigns/templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch templates")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data":  list,
		"count": len(list),
	})
}

// handleCreateTemplate handles POST /api/campaigns/templates. Variables default
// to the placeholders found in the subject and content.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req types.CreateTemplateRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	tpl := &types.EmailTemplate{
		OwnerID:   userID.String(),
		Name:      req.Name,
		Subject:   req.Subject,
		Content:   req.Content,
		Type:      req.Type,
		Variables: req.Variables,
	}
	if tpl.Type == "" {
		tpl.Type = DefaultTemplateType
	}
	if len(tpl.Variables) == 0 {
		tpl.Variables = templates.ExtractVariables(req.Subject, req.Content)
	}

	if err := s.store.CreateTemplate(r.Context(), tpl); err != nil {
		writeError(w, err, "Failed to create template")
		return
	}
	jsonResponse(w, http.StatusCreated, tpl)
}

// handlePreviewTemplate handles POST /api/campaigns/templates/{id}/preview.
func (s *Server) handlePreviewTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.PreviewTemplateRequest
	if err := decodeAndValidate(w, r, s.validator, &req); err != nil {
		writeError(w, err, "invalid request")
		return
	}

	tpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, templateStoreError(err, id), "Failed to preview template")
		return
	}
	lead, err := s.store.GetLead(r.Context(), req.LeadID)
	if err != nil {
		writeError(w, leadStoreError(err, req.LeadID), "Failed to preview template")
		return
	}

	preview, err := templates.Personalize(tpl, lead, req.Overrides)
	if err != nil {
		writeError(w, err, "Failed to preview template")
		return
	}
	jsonResponse(w, http.StatusOK, preview)
}
