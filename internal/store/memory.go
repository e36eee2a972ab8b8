package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/marketing-hub/internal/types"
)

// recentActivityLimit is the number of leads reported in LeadStats.RecentActivity.
const recentActivityLimit = 10

// Memory is a Store backed by maps. Values are cloned on the way in and out so
// callers never share memory with the store.
type Memory struct {
	mu sync.RWMutex

	leads     map[string]*types.Lead
	leadOrder []string
	campaigns map[string]*types.Campaign
	templates map[string]*types.EmailTemplate
	tplOrder  []string
	users     map[uuid.UUID]*types.User
	otps      map[string]*types.OTPRecord

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		leads:     make(map[string]*types.Lead),
		campaigns: make(map[string]*types.Campaign),
		templates: make(map[string]*types.EmailTemplate),
		users:     make(map[uuid.UUID]*types.User),
		otps:      make(map[string]*types.OTPRecord),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Close is a no-op.
func (m *Memory) Close() {}

// ListLeads implements LeadStore.
func (m *Memory) ListLeads(_ context.Context, f types.LeadFilter) (*types.LeadPage, error) {
	f = f.Normalize()

	m.mu.RLock()
	var matched []*types.Lead
	for _, id := range m.leadOrder {
		if l := m.leads[id]; MatchesFilter(l, f) {
			matched = append(matched, l)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *types.Lead) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)

	data := make([]*types.Lead, 0, end-start)
	for _, l := range matched[start:end] {
		data = append(data, l.Clone())
	}
	return &types.LeadPage{Data: data, Pagination: types.NewPagination(f.Page, f.Limit, total)}, nil
}

// MatchesFilter reports whether lead passes the region, status, source and search filters.
// Search is a case-insensitive substring match over contact person, email, company and notes.
func MatchesFilter(lead *types.Lead, f types.LeadFilter) bool {
	if f.Region != "" && string(lead.Region) != f.Region {
		return false
	}
	if f.Status != "" && string(lead.Status) != f.Status {
		return false
	}
	if f.Source != "" && lead.Source != f.Source {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	for _, field := range []string{lead.ContactPerson, lead.Email, lead.CompanyName, lead.Notes} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// AllLeads implements LeadStore.
func (m *Memory) AllLeads(_ context.Context) ([]*types.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Lead, 0, len(m.leadOrder))
	for _, id := range m.leadOrder {
		out = append(out, m.leads[id].Clone())
	}
	return out, nil
}

// GetLead implements LeadStore.
func (m *Memory) GetLead(_ context.Context, id string) (*types.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

// CreateLead implements LeadStore.
func (m *Memory) CreateLead(_ context.Context, lead *types.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(lead.Email, "") {
		return ErrDuplicateEmail
	}
	if lead.ID == "" {
		lead.ID = "lead_" + uuid.NewString()
	}
	now := m.now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	if lead.Tags == nil {
		lead.Tags = []string{}
	}

	if _, exists := m.leads[lead.ID]; !exists {
		m.leadOrder = append(m.leadOrder, lead.ID)
	}
	m.leads[lead.ID] = lead.Clone()
	return nil
}

// UpdateLead implements LeadStore.
func (m *Memory) UpdateLead(_ context.Context, lead *types.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.leads[lead.ID]
	if !ok {
		return ErrNotFound
	}
	if m.emailTaken(lead.Email, lead.ID) {
		return ErrDuplicateEmail
	}
	lead.CreatedAt = existing.CreatedAt
	lead.UpdatedAt = m.now()
	m.leads[lead.ID] = lead.Clone()
	return nil
}

// DeleteLead implements LeadStore.
func (m *Memory) DeleteLead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[id]; !ok {
		return ErrNotFound
	}
	delete(m.leads, id)
	m.leadOrder = slices.DeleteFunc(m.leadOrder, func(v string) bool { return v == id })
	return nil
}

// LeadStats implements LeadStore.
func (m *Memory) LeadStats(_ context.Context) (*types.LeadStats, error) {
	m.mu.RLock()
	leads := make([]*types.Lead, 0, len(m.leadOrder))
	for _, id := range m.leadOrder {
		leads = append(leads, m.leads[id])
	}
	m.mu.RUnlock()

	stats := NewLeadStats()
	stats.Total = len(leads)
	for _, l := range leads {
		stats.ByStatus[l.Status]++
		stats.ByRegion[l.Region]++
	}

	slices.SortStableFunc(leads, func(a, b *types.Lead) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	for _, l := range leads[:min(recentActivityLimit, len(leads))] {
		stats.RecentActivity = append(stats.RecentActivity, l.Clone())
	}
	return stats, nil
}

// NewLeadStats returns stats with a zero entry for every known status and region.
func NewLeadStats() *types.LeadStats {
	s := &types.LeadStats{
		ByStatus:       make(map[types.LeadStatus]int, len(types.LeadStatuses)),
		ByRegion:       make(map[types.Region]int, len(types.Regions)),
		RecentActivity: []*types.Lead{},
	}
	for _, st := range types.LeadStatuses {
		s.ByStatus[st] = 0
	}
	for _, r := range types.Regions {
		s.ByRegion[r] = 0
	}
	return s
}

// emailTaken reports whether another lead already uses email. Callers hold m.mu.
func (m *Memory) emailTaken(email, exceptID string) bool {
	if email == "" {
		return false
	}
	for id, l := range m.leads {
		if id != exceptID && strings.EqualFold(l.Email, email) {
			return true
		}
	}
	return false
}

// ListCampaigns implements CampaignStore.
func (m *Memory) ListCampaigns(_ context.Context) ([]*types.Campaign, error) {
	m.mu.RLock()
	out := make([]*types.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, cloneCampaign(c))
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *types.Campaign) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetCampaign implements CampaignStore.
func (m *Memory) GetCampaign(_ context.Context, id string) (*types.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCampaign(c), nil
}

// CreateCampaign implements CampaignStore.
func (m *Memory) CreateCampaign(_ context.Context, c *types.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = "campaign_" + uuid.NewString()
	}
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	m.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

// UpdateCampaign implements CampaignStore.
func (m *Memory) UpdateCampaign(_ context.Context, c *types.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.campaigns[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = m.now()
	m.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

// DeleteCampaign implements CampaignStore.
func (m *Memory) DeleteCampaign(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.campaigns[id]; !ok {
		return ErrNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func cloneCampaign(c *types.Campaign) *types.Campaign {
	out := *c
	if c.TargetAudience != nil {
		ta := types.TargetAudience{
			Regions:  slices.Clone(c.TargetAudience.Regions),
			Statuses: slices.Clone(c.TargetAudience.Statuses),
			Sources:  slices.Clone(c.TargetAudience.Sources),
		}
		out.TargetAudience = &ta
	}
	if c.Schedule != nil {
		s := *c.Schedule
		out.Schedule = &s
	}
	if c.Settings != nil {
		out.Settings = make(map[string]any, len(c.Settings))
		for k, v := range c.Settings {
			out.Settings[k] = v
		}
	}
	return &out
}

// ListTemplates implements TemplateStore. Templates are returned newest first.
func (m *Memory) ListTemplates(_ context.Context) ([]*types.EmailTemplate, error) {
	m.mu.RLock()
	out := make([]*types.EmailTemplate, 0, len(m.tplOrder))
	for _, id := range m.tplOrder {
		out = append(out, cloneTemplate(m.templates[id]))
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *types.EmailTemplate) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// GetTemplate implements TemplateStore.
func (m *Memory) GetTemplate(_ context.Context, id string) (*types.EmailTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTemplate(t), nil
}

// CreateTemplate implements TemplateStore.
func (m *Memory) CreateTemplate(_ context.Context, t *types.EmailTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = "template_" + uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
	}
	if _, exists := m.templates[t.ID]; !exists {
		m.tplOrder = append(m.tplOrder, t.ID)
	}
	m.templates[t.ID] = cloneTemplate(t)
	return nil
}

func cloneTemplate(t *types.EmailTemplate) *types.EmailTemplate {
	out := *t
	out.Variables = slices.Clone(t.Variables)
	return &out
}

// GetUser implements UserStore.
func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

// GetUserByEmail implements UserStore. Emails compare case-insensitively.
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// CreateUser implements UserStore.
func (m *Memory) CreateUser(_ context.Context, u *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := m.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

// UpdateUser implements UserStore.
func (m *Memory) UpdateUser(_ context.Context, u *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = m.now()
	m.users[u.ID] = cloneUser(u)
	return nil
}

// ListUsers implements UserStore. Users are returned oldest first.
func (m *Memory) ListUsers(_ context.Context) ([]*types.User, error) {
	m.mu.RLock()
	out := make([]*types.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *types.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})
	return out, nil
}

func cloneUser(u *types.User) *types.User {
	out := *u
	if u.Preferences != nil {
		out.Preferences = make(map[string]string, len(u.Preferences))
		for k, v := range u.Preferences {
			out.Preferences[k] = v
		}
	}
	return &out
}

// SaveOTP implements OTPStore.
func (m *Memory) SaveOTP(_ context.Context, rec *types.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *rec
	m.otps[otpKey(rec.Email)] = &r
	return nil
}

// GetOTP implements OTPStore.
func (m *Memory) GetOTP(_ context.Context, email string) (*types.OTPRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.otps[otpKey(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

// IncrementOTPAttempts implements OTPStore.
func (m *Memory) IncrementOTPAttempts(_ context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.otps[otpKey(email)]
	if !ok {
		return 0, ErrNotFound
	}
	r.Attempts++
	return r.Attempts, nil
}

// DeleteOTP implements OTPStore.
func (m *Memory) DeleteOTP(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.otps, otpKey(email))
	return nil
}

// DeleteExpiredOTPs implements OTPStore.
func (m *Memory) DeleteExpiredOTPs(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, r := range m.otps {
		if r.Expired(now) {
			delete(m.otps, k)
			n++
		}
	}
	return n, nil
}

func otpKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Store = (*Memory)(nil)
