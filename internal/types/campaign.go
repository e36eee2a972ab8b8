package types

import (
	"fmt"
	"strconv"
	"time"
)

// CampaignType is the delivery channel of a campaign.
type CampaignType string

// Campaign channels
const (
	CampaignTypeEmail  CampaignType = "email"
	CampaignTypeSMS    CampaignType = "sms"
	CampaignTypeSocial CampaignType = "social"
	CampaignTypeMixed  CampaignType = "mixed"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

// Campaign lifecycle states
const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusArchived  CampaignStatus = "archived"
)

// TargetAudience selects the leads a campaign addresses. An empty list matches any value.
type TargetAudience struct {
	Regions  []Region     `json:"regions,omitempty" yaml:"regions,omitempty" validate:"omitempty,dive,oneof=UAE India Australia US"`
	Statuses []LeadStatus `json:"statuses,omitempty" yaml:"statuses,omitempty" validate:"omitempty,dive,oneof=new contacted qualified proposal won lost"`
	Sources  []string     `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Matches reports whether the lead falls inside the audience.
func (a *TargetAudience) Matches(lead *Lead) bool {
	if a == nil {
		return true
	}
	if len(a.Regions) > 0 && !containsValue(a.Regions, lead.Region) {
		return false
	}
	if len(a.Statuses) > 0 && !containsValue(a.Statuses, lead.Status) {
		return false
	}
	if len(a.Sources) > 0 && !containsValue(a.Sources, lead.Source) {
		return false
	}
	return true
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Schedule holds the campaign run window. Dates are ISO-8601 strings.
type Schedule struct {
	StartDate string `json:"start_date,omitempty" yaml:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Timezone  string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// CampaignAnalytics holds delivery counters.
type CampaignAnalytics struct {
	Sent      int `json:"sent" yaml:"sent"`
	Delivered int `json:"delivered" yaml:"delivered"`
	Opened    int `json:"opened" yaml:"opened"`
	Clicked   int `json:"clicked" yaml:"clicked"`
	Converted int `json:"converted" yaml:"converted"`
}

// AnalyticsReport adds derived rates to the raw counters.
type AnalyticsReport struct {
	CampaignAnalytics
	OpenRate       string `json:"open_rate"`
	ClickRate      string `json:"click_rate"`
	ConversionRate string `json:"conversion_rate"`
}

// Report computes open, click and conversion rates as one-decimal percentages.
func (a CampaignAnalytics) Report() AnalyticsReport {
	return AnalyticsReport{
		CampaignAnalytics: a,
		OpenRate:          percent(a.Opened, a.Sent),
		ClickRate:         percent(a.Clicked, a.Opened),
		ConversionRate:    percent(a.Converted, a.Sent),
	}
}

func percent(part, whole int) string {
	if whole <= 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(part)/float64(whole)*100, 'f', 1, 64)
}

// Campaign is an outreach campaign record.
type Campaign struct {
	ID             string            `json:"id" yaml:"id"`
	OwnerID        string            `json:"owner_id" yaml:"owner_id"`
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Type           CampaignType      `json:"type" yaml:"type"`
	Status         CampaignStatus    `json:"status" yaml:"status"`
	TemplateID     string            `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	TargetAudience *TargetAudience   `json:"target_audience,omitempty" yaml:"target_audience,omitempty"`
	Schedule       *Schedule         `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Analytics      CampaignAnalytics `json:"analytics" yaml:"analytics"`
	Settings       map[string]any    `json:"settings,omitempty" yaml:"settings,omitempty"`
	CreatedAt      time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Start moves the campaign into the active state.
func (c *Campaign) Start() error {
	if c.Status == CampaignStatusActive {
		return fmt.Errorf("campaign is already active")
	}
	c.Status = CampaignStatusActive
	return nil
}

// Pause suspends an active campaign.
func (c *Campaign) Pause() error {
	if c.Status != CampaignStatusActive {
		return fmt.Errorf("only active campaigns can be paused")
	}
	c.Status = CampaignStatusPaused
	return nil
}

// CreateCampaignRequest is the payload for creating a campaign.
type CreateCampaignRequest struct {
	Name           string          `json:"name" validate:"required,min=2,max=200"`
	Description    string          `json:"description" validate:"max=1000"`
	Type           CampaignType    `json:"type" validate:"omitempty,oneof=email sms social mixed"`
	Status         CampaignStatus  `json:"status" validate:"omitempty,oneof=draft active paused completed archived"`
	TemplateID     string          `json:"template_id"`
	TargetAudience *TargetAudience `json:"target_audience" validate:"omitempty"`
	Schedule       *Schedule       `json:"schedule" validate:"omitempty"`
	Settings       map[string]any  `json:"settings"`
}

// ToCampaign builds a new campaign with zeroed analytics and defaulted type and status.
func (r *CreateCampaignRequest) ToCampaign() *Campaign {
	c := &Campaign{
		Name:           r.Name,
		Description:    r.Description,
		Type:           r.Type,
		Status:         r.Status,
		TemplateID:     r.TemplateID,
		TargetAudience: r.TargetAudience,
		Schedule:       r.Schedule,
		Settings:       r.Settings,
	}
	if c.Type == "" {
		c.Type = CampaignTypeEmail
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	return c
}

// UpdateCampaignRequest is a partial campaign update.
type UpdateCampaignRequest struct {
	Name           *string         `json:"name" validate:"omitempty,min=2,max=200"`
	Description    *string         `json:"description" validate:"omitempty,max=1000"`
	Type           *CampaignType   `json:"type" validate:"omitempty,oneof=email sms social mixed"`
	Status         *CampaignStatus `json:"status" validate:"omitempty,oneof=draft active paused completed archived"`
	TemplateID     *string         `json:"template_id"`
	TargetAudience *TargetAudience `json:"target_audience" validate:"omitempty"`
	Schedule       *Schedule       `json:"schedule" validate:"omitempty"`
	Settings       map[string]any  `json:"settings"`
}

// Apply copies the set fields onto c.
func (r *UpdateCampaignRequest) Apply(c *Campaign) {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Description != nil {
		c.Description = *r.Description
	}
	if r.Type != nil {
		c.Type = *r.Type
	}
	if r.Status != nil {
		c.Status = *r.Status
	}
	if r.TemplateID != nil {
		c.TemplateID = *r.TemplateID
	}
	if r.TargetAudience != nil {
		c.TargetAudience = r.TargetAudience
	}
	if r.Schedule != nil {
		c.Schedule = r.Schedule
	}
	if r.Settings != nil {
		c.Settings = r.Settings
	}
}

// EmailTemplate is a reusable email body with {{variable}} placeholders.
type EmailTemplate struct {
	ID        string    `json:"id" yaml:"id"`
	OwnerID   string    `json:"owner_id" yaml:"owner_id"`
	Name      string    `json:"name" yaml:"name"`
	Subject   string    `json:"subject" yaml:"subject"`
	Content   string    `json:"content" yaml:"content"`
	Type      string    `json:"type" yaml:"type"`
	Variables []string  `json:"variables" yaml:"variables"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// CreateTemplateRequest is the payload for creating an email template.
type CreateTemplateRequest struct {
	Name      string   `json:"name" validate:"required"`
	Subject   string   `json:"subject" validate:"required"`
	Content   string   `json:"content" validate:"required"`
	Type      string   `json:"type"`
	Variables []string `json:"variables"`
}

// PreviewTemplateRequest selects the lead a template is personalized for.
type PreviewTemplateRequest struct {
	LeadID    string            `json:"lead_id" validate:"required"`
	Overrides map[string]string `json:"overrides"`
}

// TemplatePreview is a personalized rendering of a template.
type TemplatePreview struct {
	Subject    string   `json:"subject"`
	Content    string   `json:"content"`
	PlainText  string   `json:"plain_text"`
	Unresolved []string `json:"unresolved,omitempty"`
}
