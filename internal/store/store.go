// Package store defines the repository interfaces for leads, campaigns, templates,
// users and pending login codes, plus an in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/marketing-hub/internal/types"
)

// Sentinel errors shared by every implementation.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("a lead with this email already exists")
)

// LeadStore is the canonical lead repository.
type LeadStore interface {
	// ListLeads returns one page of leads matching f, newest first.
	ListLeads(ctx context.Context, f types.LeadFilter) (*types.LeadPage, error)
	// AllLeads returns every lead in creation order.
	AllLeads(ctx context.Context) ([]*types.Lead, error)
	GetLead(ctx context.Context, id string) (*types.Lead, error)
	// CreateLead assigns an id and timestamps when they are unset.
	CreateLead(ctx context.Context, lead *types.Lead) error
	// UpdateLead replaces the stored lead with the same id and bumps UpdatedAt.
	UpdateLead(ctx context.Context, lead *types.Lead) error
	DeleteLead(ctx context.Context, id string) error
	LeadStats(ctx context.Context) (*types.LeadStats, error)
}

// CampaignStore persists campaigns.
type CampaignStore interface {
	// ListCampaigns returns campaigns most recently updated first.
	ListCampaigns(ctx context.Context) ([]*types.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*types.Campaign, error)
	CreateCampaign(ctx context.Context, c *types.Campaign) error
	UpdateCampaign(ctx context.Context, c *types.Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
}

// TemplateStore persists email templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]*types.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*types.EmailTemplate, error)
	CreateTemplate(ctx context.Context, t *types.EmailTemplate) error
}

// UserStore persists user accounts.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	CreateUser(ctx context.Context, u *types.User) error
	UpdateUser(ctx context.Context, u *types.User) error
	ListUsers(ctx context.Context) ([]*types.User, error)
}

// OTPStore holds at most one pending code per email address.
type OTPStore interface {
	// SaveOTP stores rec, replacing any pending code for the same email.
	SaveOTP(ctx context.Context, rec *types.OTPRecord) error
	GetOTP(ctx context.Context, email string) (*types.OTPRecord, error)
	// IncrementOTPAttempts records a failed attempt and returns the new count.
	IncrementOTPAttempts(ctx context.Context, email string) (int, error)
	DeleteOTP(ctx context.Context, email string) error
	// DeleteExpiredOTPs drops every code that expired before now.
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int, error)
}

// Store bundles every repository the server needs.
type Store interface {
	LeadStore
	CampaignStore
	TemplateStore
	UserStore
	OTPStore
	Close()
}
