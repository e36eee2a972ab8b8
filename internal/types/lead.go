// Package types provides type definitions for the leads, campaigns and users handled by the marketing hub.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"
)

// Region is one of the target markets a lead can belong to.
type Region string

// Known regions
const (
	RegionUAE       Region = "UAE"
	RegionIndia     Region = "India"
	RegionAustralia Region = "Australia"
	RegionUS        Region = "US"
)

// Regions lists every valid region in display order.
var Regions = []Region{RegionUAE, RegionIndia, RegionAustralia, RegionUS}

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	for _, known := range Regions {
		if r == known {
			return true
		}
	}
	return false
}

// Service is one of the service offerings a lead is interested in.
type Service string

// Known services
const (
	ServiceWebsiteDevelopment    Service = "Website Development"
	ServicePerformanceMarketing  Service = "Performance Marketing"
	ServiceSocialMediaManagement Service = "Social Media Management"
)

// Services lists every valid service.
var Services = []Service{ServiceWebsiteDevelopment, ServicePerformanceMarketing, ServiceSocialMediaManagement}

// Valid reports whether s is a known service.
func (s Service) Valid() bool {
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}

// CompanySize is the size bucket of a lead's company.
type CompanySize string

// Known company sizes
const (
	CompanySizeEnterprise CompanySize = "Enterprise"
	CompanySizeMedium     CompanySize = "Medium"
	CompanySizeSmall      CompanySize = "Small"
	CompanySizeStartup    CompanySize = "Startup"
)

// CompanySizes lists every valid company size.
var CompanySizes = []CompanySize{CompanySizeEnterprise, CompanySizeMedium, CompanySizeSmall, CompanySizeStartup}

// Valid reports whether c is a known company size.
func (c CompanySize) Valid() bool {
	for _, known := range CompanySizes {
		if c == known {
			return true
		}
	}
	return false
}

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

// Lead pipeline stages
const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusProposal  LeadStatus = "proposal"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// LeadStatuses lists every pipeline stage in order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
	LeadStatusProposal, LeadStatusWon, LeadStatusLost,
}

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Tag values with meaning to the scoring rules.
const (
	TagSocialMediaPresence = "Social Media Presence"
)

// PlaceholderContact is the generic contact name used when no real person is known.
const PlaceholderContact = "Business Development Team"

// Lead is a sales prospect record.
// ID is unique within any collection and is never rewritten once assigned.
type Lead struct {
	ID            string         `json:"id" yaml:"id"`
	OwnerID       string         `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	CompanyName   string         `json:"company_name" yaml:"company_name"`
	ContactPerson string         `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
	Email         string         `json:"email,omitempty" yaml:"email,omitempty"`
	Phone         string         `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website       string         `json:"website,omitempty" yaml:"website,omitempty"`
	Region        Region         `json:"region,omitempty" yaml:"region,omitempty"`
	Service       Service        `json:"service,omitempty" yaml:"service,omitempty"`
	CompanySize   CompanySize    `json:"company_size,omitempty" yaml:"company_size,omitempty"`
	LeadScore     int            `json:"lead_score" yaml:"lead_score"`
	Status        LeadStatus     `json:"status" yaml:"status"`
	Source        string         `json:"source,omitempty" yaml:"source,omitempty"`
	Tags          []string       `json:"tags" yaml:"tags,omitempty"`
	Notes         string         `json:"notes,omitempty" yaml:"notes,omitempty"`
	CustomFields  map[string]any `json:"custom_fields,omitempty" yaml:"custom_fields,omitempty"`
	LastContact   *time.Time     `json:"last_contact,omitempty" yaml:"last_contact,omitempty"`
	CreatedAt     time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" yaml:"updated_at"`
}

// HasTag reports whether the lead carries the given tag.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy of the lead that shares no slices or maps with the original.
func (l *Lead) Clone() *Lead {
	if l == nil {
		return nil
	}
	c := *l
	if l.Tags != nil {
		c.Tags = append(make([]string, 0, len(l.Tags)), l.Tags...)
	}
	if l.CustomFields != nil {
		c.CustomFields = make(map[string]any, len(l.CustomFields))
		for k, v := range l.CustomFields {
			c.CustomFields[k] = v
		}
	}
	if l.LastContact != nil {
		t := *l.LastContact
		c.LastContact = &t
	}
	return &c
}

// LeadFilter narrows a lead listing. Empty fields (or "all") match everything.
type LeadFilter struct {
	Region string
	Status string
	Source string
	Search string
	Page   int
	Limit  int
}

// Default pagination values
const (
	DefaultPage  = 1
	DefaultLimit = 50
	ExportLimit  = 10000
)

// Normalize fills pagination defaults and clears "all" filters.
func (f LeadFilter) Normalize() LeadFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Region == "all" {
		f.Region = ""
	}
	if f.Status == "all" {
		f.Status = ""
	}
	if f.Source == "all" {
		f.Source = ""
	}
	return f
}

// Offset returns the zero-based index of the first row on the requested page.
func (f LeadFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count for a result set.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// LeadPage is one page of a filtered lead listing.
type LeadPage struct {
	Data       []*Lead    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// LeadStats summarizes the lead store.
type LeadStats struct {
	Total          int                `json:"total"`
	ByStatus       map[LeadStatus]int `json:"by_status"`
	ByRegion       map[Region]int     `json:"by_region"`
	RecentActivity []*Lead            `json:"recent_activity"`
}

// CreateLeadRequest is the payload for creating a lead.
type CreateLeadRequest struct {
	CompanyName   string         `json:"company_name" validate:"required,min=2,max=200"`
	ContactPerson string         `json:"contact_person" validate:"omitempty,min=2,max=100"`
	Email         string         `json:"email" validate:"required,email"`
	Phone         string         `json:"phone" validate:"omitempty,min=10,max=20"`
	Website       string         `json:"website" validate:"omitempty,max=255"`
	Region        Region         `json:"region" validate:"required,oneof=UAE India Australia US"`
	Service       Service        `json:"service" validate:"omitempty,oneof='Website Development' 'Performance Marketing' 'Social Media Management'"`
	CompanySize   CompanySize    `json:"company_size" validate:"omitempty,oneof=Enterprise Medium Small Startup"`
	Status        LeadStatus     `json:"status" validate:"omitempty,oneof=new contacted qualified proposal won lost"`
	Source        string         `json:"source" validate:"max=100"`
	Tags          []string       `json:"tags" validate:"omitempty,dive,min=1,max=50"`
	Notes         string         `json:"notes" validate:"max=1000"`
	CustomFields  map[string]any `json:"custom_fields"`
}

// ToLead builds a new lead from the request. Status defaults to "new".
func (r *CreateLeadRequest) ToLead() *Lead {
	status := r.Status
	if status == "" {
		status = LeadStatusNew
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Lead{
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Website:       r.Website,
		Region:        r.Region,
		Service:       r.Service,
		CompanySize:   r.CompanySize,
		Status:        status,
		Source:        r.Source,
		Tags:          tags,
		Notes:         r.Notes,
		CustomFields:  r.CustomFields,
	}
}

// UpdateLeadRequest is a partial update; nil fields are left untouched.
type UpdateLeadRequest struct {
	CompanyName   *string        `json:"company_name" validate:"omitempty,min=2,max=200"`
	ContactPerson *string        `json:"contact_person" validate:"omitempty,max=100"`
	Email         *string        `json:"email" validate:"omitempty,email"`
	Phone         *string        `json:"phone" validate:"omitempty,max=20"`
	Website       *string        `json:"website" validate:"omitempty,max=255"`
	Region        *Region        `json:"region" validate:"omitempty,oneof=UAE India Australia US"`
	Service       *Service       `json:"service" validate:"omitempty,oneof='Website Development' 'Performance Marketing' 'Social Media Management'"`
	CompanySize   *CompanySize   `json:"company_size" validate:"omitempty,oneof=Enterprise Medium Small Startup"`
	Status        *LeadStatus    `json:"status" validate:"omitempty,oneof=new contacted qualified proposal won lost"`
	Source        *string        `json:"source" validate:"omitempty,max=100"`
	Tags          []string       `json:"tags" validate:"omitempty,dive,min=1,max=50"`
	Notes         *string        `json:"notes" validate:"omitempty,max=1000"`
	CustomFields  map[string]any `json:"custom_fields"`
	LastContact   *time.Time     `json:"last_contact"`
}

// Empty reports whether the update carries no fields.
func (r *UpdateLeadRequest) Empty() bool {
	return r.CompanyName == nil && r.ContactPerson == nil && r.Email == nil && r.Phone == nil &&
		r.Website == nil && r.Region == nil && r.Service == nil && r.CompanySize == nil &&
		r.Status == nil && r.Source == nil && r.Tags == nil && r.Notes == nil &&
		r.CustomFields == nil && r.LastContact == nil
}

// Apply copies the set fields onto lead.
func (r *UpdateLeadRequest) Apply(lead *Lead) {
	if r.CompanyName != nil {
		lead.CompanyName = *r.CompanyName
	}
	if r.ContactPerson != nil {
		lead.ContactPerson = *r.ContactPerson
	}
	if r.Email != nil {
		lead.Email = *r.Email
	}
	if r.Phone != nil {
		lead.Phone = *r.Phone
	}
	if r.Website != nil {
		lead.Website = *r.Website
	}
	if r.Region != nil {
		lead.Region = *r.Region
	}
	if r.Service != nil {
		lead.Service = *r.Service
	}
	if r.CompanySize != nil {
		lead.CompanySize = *r.CompanySize
	}
	if r.Status != nil {
		lead.Status = *r.Status
	}
	if r.Source != nil {
		lead.Source = *r.Source
	}
	if r.Tags != nil {
		lead.Tags = append([]string(nil), r.Tags...)
	}
	if r.Notes != nil {
		lead.Notes = *r.Notes
	}
	if r.CustomFields != nil {
		lead.CustomFields = r.CustomFields
	}
	if r.LastContact != nil {
		t := *r.LastContact
		lead.LastContact = &t
	}
}

// BulkUpdateRequest applies the same update to several leads.
type BulkUpdateRequest struct {
	LeadIDs []string           `json:"lead_ids" validate:"required,min=1,dive,required"`
	Updates *UpdateLeadRequest `json:"updates" validate:"required"`
}

// BulkUpdateError records a per-lead failure during a bulk update.
type BulkUpdateError struct {
	LeadID string `json:"lead_id"`
	Error  string `json:"error"`
}

// BulkUpdateResult reports the outcome of a bulk update.
type BulkUpdateResult struct {
	Success bool              `json:"success"`
	Data    []*Lead           `json:"data"`
	Errors  []BulkUpdateError `json:"errors"`
	Message string            `json:"message"`
}
